package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/pkg/di"
	"github.com/goliatone/go-repository-service/service"
	"github.com/goliatone/go-repository-service/store"
)

func newRunCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the lookup, update and delete walkthrough",
		Long: "Creates a user, looks it up by email until the reference is served from " +
			"the cache, updates and deletes it, and prints each step with its cache key.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), s)
		},
	}
}

func run(ctx context.Context, out, logOut io.Writer, s settings) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, flush, err := newLogger(s.Log, s.Debug, logOut)
	if err != nil {
		return err
	}
	defer flush()

	reg, hooks, err := newMetrics(s.Metrics)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, s)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	container, err := di.NewContainer(s.container(), di.WithLogger(logger), di.WithHooks(hooks))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := container.Close(context.Background()); cerr != nil && err == nil {
			err = cerr
		}
	}()

	svc, err := di.NewService[User](container, st, s.Cache.UniqueKey)
	if err != nil {
		return err
	}
	defer svc.Wait()

	if err := walkthrough(ctx, out, svc); err != nil {
		return err
	}

	if reg != nil {
		svc.Wait()
		return printMetrics(out, reg)
	}
	return nil
}

func walkthrough(ctx context.Context, out io.Writer, svc *service.Service[User]) error {
	step := func(label string, cond entity.Condition, u User) {
		fmt.Fprintf(out, "%-12s %-36s %s %q\n", label, svc.CacheKey(cond), u.ID, u.Name)
	}

	created, err := svc.Create(ctx, User{Name: "Ada", Email: "a@x.com"})
	if err != nil {
		return err
	}
	byEmail := entity.Where("email", created.Email)
	byID := entity.ByID(created.ID)

	for _, label := range []string{"lookup", "resolve", "hit"} {
		u, err := svc.FindOne(ctx, byEmail)
		if err != nil {
			return err
		}
		svc.Wait()
		step(label, byEmail, u)
	}

	u, err := svc.FindOne(ctx, byID)
	if err != nil {
		return err
	}
	step("hit", byID, u)

	if _, err := svc.UpdateByID(ctx, created.ID, entity.Patch{"name": "Ada Lovelace"}); err != nil {
		return err
	}
	svc.Wait()

	u, err = svc.FindOne(ctx, byEmail)
	if err != nil {
		return err
	}
	svc.Wait()
	step("updated", byEmail, u)

	page, err := svc.FindAll(ctx, nil, store.FindAllOptions{Sort: "-created_at"})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%-12s %d of %d\n", "list", len(page.Data), page.Total)

	if _, err := svc.DeleteByID(ctx, created.ID); err != nil {
		return err
	}
	svc.Wait()

	_, err = svc.FindOne(ctx, byEmail)
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("expected %s to be gone, got %v", created.ID, err)
	}
	fmt.Fprintf(out, "%-12s %s\n", "deleted", svc.CacheKey(byEmail))
	return nil
}
