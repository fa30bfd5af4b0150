package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Name:      uname,
			Username:  uname,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if isAdmin {
		usr.Roles = []string{user.RoleAdmin}
	}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr, usr.IsActive)
	}
	return err
}
