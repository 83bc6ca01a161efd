package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/cartstore/internal/catalog"
	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/notify"
	"github.com/vladislavdragonenkov/cartstore/internal/service/cart"
	"github.com/vladislavdragonenkov/cartstore/internal/spinner"
	"github.com/vladislavdragonenkov/cartstore/internal/storage/file"
)

const (
	defaultSession = "default"
	flushTimeout   = 10 * time.Second
)

// cli - состояние одного запуска cartctl.
type cli struct {
	home       string
	session    string
	catalogURL string
	verbose    bool

	out    io.Writer
	errOut io.Writer

	logger    *log.Entry
	persister *cart.Persister
	recorder  *notify.Recorder
	store     *cart.Store
	spinner   *spinner.Service
	catalog   *catalog.Client
}

// Execute запускает cartctl с аргументами командной строки.
func Execute() error {
	return newRootCmd(os.Stdout, os.Stderr).Execute()
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Local shopping cart",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.flush(cmd.Context())
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&c.home, "home", "", "data dir (default ~/.cartctl)")
	root.PersistentFlags().StringVarP(&c.session, "session", "s", defaultSession, "cart session id")
	root.PersistentFlags().StringVar(&c.catalogURL, "catalog", "", "catalog base URL (e.g. https://fakestoreapi.com)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(showCmd(c), addCmd(c), removeCmd(c), clearCmd(c))
	return root
}

// open собирает корзину сессии поверх файлового хранилища в home.
func (c *cli) open() error {
	if c.home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.home = filepath.Join(dir, ".cartctl")
	}

	logger := log.New()
	logger.SetOutput(c.errOut)
	logger.SetLevel(log.WarnLevel)
	if c.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	c.logger = logger.WithField("component", "cartctl")

	repo, err := file.NewSnapshotRepository(filepath.Join(c.home, "carts"))
	if err != nil {
		return err
	}

	c.persister = cart.NewPersister(repo, cart.WithPersisterLogger(c.logger.WithField("component", "cart-persister")))
	c.recorder = notify.NewRecorder()
	registry := cart.NewRegistry(repo, c.persister, func(string) domain.Notifier {
		return c.recorder
	}, cart.WithLogger(c.logger))

	c.store, err = registry.Session(c.session)
	if err != nil {
		return err
	}

	if c.catalogURL != "" {
		c.spinner = spinner.New()
		c.catalog = catalog.New(c.catalogURL, catalog.WithSpinner(c.spinner))
	}
	return nil
}

// flush дожидается записи снимка. Без него запись могла бы потеряться при выходе.
func (c *cli) flush(ctx context.Context) error {
	if c.persister == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	if err := c.persister.Flush(ctx); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// report печатает накопленные уведомления и текущее состояние корзины.
func (c *cli) report(snapshot domain.CartSnapshot) {
	for _, n := range c.recorder.Drain() {
		if n.Title != "" {
			_, _ = fmt.Fprintf(c.out, "[%s] %s: %s\n", n.Level, n.Title, n.Message)
			continue
		}
		_, _ = fmt.Fprintf(c.out, "[%s] %s\n", n.Level, n.Message)
	}
	printSnapshot(c.out, snapshot)
}

// watchSpinner печатает состояние индикатора загрузки в stderr, пока не вызван stop.
func (c *cli) watchSpinner() (stop func()) {
	if c.spinner == nil {
		return func() {}
	}

	states, cancel := c.spinner.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for loading := range states {
			if loading {
				_, _ = fmt.Fprintln(c.errOut, "loading...")
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
