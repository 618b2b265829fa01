package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/moneytrail/moneytrail/internal/auth"
	"github.com/moneytrail/moneytrail/internal/cache"
	"github.com/moneytrail/moneytrail/internal/middleware"
	"github.com/moneytrail/moneytrail/internal/model"
	"github.com/moneytrail/moneytrail/internal/repository"
	"github.com/moneytrail/moneytrail/internal/service"
)

// storeTimeout bounds each database call made by the CLI.
const storeTimeout = 10 * time.Second

// userDeleter is the store surface used by user delete.
type userDeleter interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// identityEvicter drops a cached identity.
type identityEvicter interface {
	DeleteIdentity(ctx context.Context, userID string) error
}

func userCmd() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage accounts",
		Subcommands: []*cli.Command{
			userAddCmd(),
			userDeleteCmd(),
		},
	}
}

func userAddCmd() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Create an account (password is prompted, or read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
			&cli.StringFlag{Name: "email", Usage: "Login email", Required: true},
			&cli.StringFlag{
				Name:    "hash-algo",
				Usage:   "Password hash algorithm (bcrypt or argon2id)",
				EnvVars: []string{"PASSWORD_HASH_ALGO"},
				Value:   auth.AlgoBcrypt,
			},
			&cli.IntFlag{
				Name:    "bcrypt-cost",
				Usage:   "bcrypt work factor",
				EnvVars: []string{"BCRYPT_COST"},
				Value:   auth.DefaultBcryptCost,
			},
		},
		Action: func(c *cli.Context) error {
			fmt.Fprint(c.App.ErrWriter, "Password: ")
			password, err := readPassword(c.App.Reader)
			fmt.Fprintln(c.App.ErrWriter)
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			hasher, err := auth.NewHasher(c.String("hash-algo"), c.Int("bcrypt-cost"))
			if err != nil {
				return err
			}

			repo, err := openRepository(c)
			if err != nil {
				return err
			}
			defer repo.Close()

			user, err := addUser(c.Context, repo, auth.NewHashPool(hasher, 1, 0, nil), middleware.SignupRequest{
				Name:     c.String("name"),
				Email:    c.String("email"),
				Password: password,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "created user %s <%s> id=%s\n", user.Name, user.Email, user.ID)
			return nil
		},
	}
}

// addUser applies the signup rules and creates the account.
func addUser(ctx context.Context, users service.UserStore, hasher service.Hasher, req middleware.SignupRequest) (*model.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := middleware.Validate(&req); err != nil {
		return nil, err
	}

	svc := service.NewAuthService(service.AuthConfig{
		Users:        users,
		Hasher:       hasher,
		StoreTimeout: storeTimeout,
	})

	user, err := svc.Signup(ctx, service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if errors.Is(err, service.ErrEmailTaken) {
		return nil, fmt.Errorf("an account for %s already exists", req.Email)
	}
	return user, err
}

func userDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete an account and all of its transactions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Login email of the account", Required: true},
		},
		Action: func(c *cli.Context) error {
			repo, err := openRepository(c)
			if err != nil {
				return err
			}
			defer repo.Close()

			var evicter identityEvicter
			if redisURL := c.String("redis-url"); redisURL != "" {
				client, err := cache.New(c.Context, redisURL)
				if err != nil {
					return fmt.Errorf("connect to redis: %w", err)
				}
				defer client.Close()
				evicter = client
			}

			id, err := deleteUser(c.Context, repo, evicter, c.String("email"))
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "deleted user %s\n", id)
			return nil
		},
	}
}

// deleteUser removes the account and evicts its cached identity so open
// sessions fail on their next request. evicter may be nil.
func deleteUser(ctx context.Context, users userDeleter, evicter identityEvicter, email string) (string, error) {
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := users.GetUserByEmail(storeCtx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", fmt.Errorf("no account for %s", email)
		}
		return "", err
	}

	if err := users.DeleteUser(storeCtx, user.ID); err != nil {
		return "", err
	}

	if evicter != nil {
		if err := evicter.DeleteIdentity(ctx, user.ID); err != nil {
			return user.ID, fmt.Errorf("user deleted but cache eviction failed: %w", err)
		}
	}

	return user.ID, nil
}

// readPassword reads without echo from a terminal, or one line otherwise.
func readPassword(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
