package main

import (
	"context"
	"time"

	"github.com/LAVINDI111/acnsms/core"
	"github.com/LAVINDI111/acnsms/core/user"
)

// addUser creates an active admin user.User
func (cli *commandLine) addUser(uname, email, phone, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if err := cli.usrRepo.CheckUsernameUniqueness(ctx, uname, email); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr := user.User{
		Username:  uname,
		Email:     email,
		Phone:     core.CleanString(phone),
		Role:      user.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err := cli.usrRepo.CreateUser(ctx, usr)
	return err
}
