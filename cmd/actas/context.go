package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"actas/internal/audit"
	"actas/internal/config"
	"actas/internal/lifecycle"
	"actas/internal/rbac"
	"actas/internal/store"
)

type commandContext struct {
	configFlag *string
	actorFlag  *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, actorFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		actorFlag:  actorFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withStore opens the database for the duration of one command.
func (c *commandContext) withStore(cmd *cobra.Command, fn func(context.Context, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(cmd.Context(), st)
}

// resolveActor looks up the user named by the --as flag, by id first and by
// email as a fallback.
func (c *commandContext) resolveActor(ctx context.Context, st *store.Store) (*rbac.User, error) {
	var value string
	if c.actorFlag != nil {
		value = strings.TrimSpace(*c.actorFlag)
	}
	if value == "" {
		return nil, fmt.Errorf("this command acts on behalf of a user; pass --as <user id or email>")
	}
	user, err := st.GetUser(ctx, value)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = st.GetUserByEmail(ctx, value)
		if err != nil {
			return nil, err
		}
	}
	if user == nil {
		return nil, fmt.Errorf("no user with id or email %q", value)
	}
	return user, nil
}

func (c *commandContext) lifecycle(st *store.Store) *lifecycle.Manager {
	return lifecycle.NewManager(st, audit.NewRecorder(st, nil), nil)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
