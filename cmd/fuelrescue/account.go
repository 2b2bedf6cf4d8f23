package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/fuelrescue/internal/account"
)

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create a user account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Full name", Required: true},
			&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
			&cli.StringFlag{Name: "password", Usage: "Password", Required: true, EnvVars: []string{"FUELRESCUE_PASSWORD"}},
			&cli.StringFlag{Name: "confirm-password", Usage: "Password again"},
		},
		Action: registerAction,
	}
}

func registerAction(c *cli.Context) error {
	ctx := context.Background()
	cfg := loadConfig(c)
	logger := newLogger(c, cfg)

	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	confirm := c.String("password")
	if c.IsSet("confirm-password") {
		confirm = c.String("confirm-password")
	}

	user, err := account.NewService(storage, logger).Register(ctx, account.RegisterInput{
		Name:            c.String("name"),
		Email:           c.String("email"),
		Password:        c.String("password"),
		ConfirmPassword: confirm,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Account created for %s <%s>\n", user.Name, user.Email)
	return nil
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Check a user's credentials",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
			&cli.StringFlag{Name: "password", Usage: "Password", Required: true, EnvVars: []string{"FUELRESCUE_PASSWORD"}},
		},
		Action: loginAction,
	}
}

func loginAction(c *cli.Context) error {
	ctx := context.Background()
	cfg := loadConfig(c)
	logger := newLogger(c, cfg)

	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	user, err := account.NewService(storage, logger).Login(ctx, c.String("email"), c.String("password"))
	if err != nil {
		return err
	}
	fmt.Printf("Welcome back, %s\n", user.Name)
	return nil
}
