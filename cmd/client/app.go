package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/todosync/internal/certgen"
	"github.com/atinyakov/todosync/internal/client/storage"
	"github.com/atinyakov/todosync/internal/client/syncer"
	"github.com/atinyakov/todosync/internal/client/todo"
	"github.com/atinyakov/todosync/internal/logger"
	"github.com/atinyakov/todosync/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// settings are the persistent flags shared by every command.
type settings struct {
	serverURL string
	dataDir   string
	backend   string
	logLevel  string
	caFile    string
}

// app holds the wired client for the duration of one command.
type app struct {
	store   storage.Store
	local   *storage.Local
	api     *syncer.Client
	syncer  *syncer.Syncer
	manager *todo.Manager
	log     *zap.Logger
	out     io.Writer
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "todosync")
	}
	return ".todosync"
}

func openApp(s *settings, out io.Writer) (*app, error) {
	l := logger.New()
	if err := l.Init(s.logLevel); err != nil {
		return nil, err
	}

	store, err := storage.Open(s.backend, s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}
	httpClient, err := newHTTPClient(s.caFile)
	if err != nil {
		store.Close()
		return nil, err
	}
	local := storage.NewLocal(store)
	api := syncer.NewClient(s.serverURL, store, httpClient)
	sy := syncer.New(api, local, l.Log)

	return &app{
		store:   store,
		local:   local,
		api:     api,
		syncer:  sy,
		manager: todo.NewManager(local, sy, l.Log),
		log:     l.Log,
		out:     out,
	}, nil
}

// newHTTPClient returns a client that trusts only caFile, or nil for the
// default client when caFile is empty.
func newHTTPClient(caFile string) (*http.Client, error) {
	if caFile == "" {
		return nil, nil
	}
	pool, err := certgen.LoadCertPool(caFile)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
		},
	}, nil
}

func (a *app) close() error {
	_ = a.log.Sync()
	return a.store.Close()
}

// syncNow attempts one sync and reports the outcome. Failures are not
// fatal: the change stays queued.
func (a *app) syncNow(ctx context.Context) {
	res, err := a.syncer.Sync(ctx)
	switch {
	case errors.Is(err, syncer.ErrUnauthorized):
		fmt.Fprintln(a.out, "not logged in; changes kept locally")
	case err != nil:
		fmt.Fprintf(a.out, "sync failed, changes kept locally: %v\n", err)
	case res.Offline:
		fmt.Fprintln(a.out, "offline; changes kept locally")
	case res.Sent > 0:
		fmt.Fprintf(a.out, "synced %d change(s)\n", res.Sent)
	}
}

// resolveID accepts a full identifier or a unique prefix of an active
// cached task.
func (a *app) resolveID(arg string) (string, error) {
	tasks, err := a.manager.List(todo.FilterAll, "")
	if err != nil {
		return "", err
	}
	var match string
	for _, t := range tasks {
		if t.ID == arg {
			return arg, nil
		}
		if strings.HasPrefix(t.ID, arg) || strings.HasPrefix(strings.TrimPrefix(t.ID, models.TempIDPrefix), arg) {
			if match != "" {
				return "", fmt.Errorf("ambiguous id %q", arg)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", todo.ErrNotFound
	}
	return match, nil
}

func newRootCmd() *cobra.Command {
	s := &settings{}
	var a *app

	root := &cobra.Command{
		Use:           "todo",
		Short:         "Offline-first to-do list",
		Version:       fmt.Sprintf("%s (built %s)", cmp.Or(version, "dev"), cmp.Or(buildDate, "N/A")),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = openApp(s, cmd.OutOrStdout())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.serverURL, "url", cmp.Or(os.Getenv("TODO_SERVER"), "http://localhost:8080"), "server base URL (env TODO_SERVER)")
	flags.StringVar(&s.dataDir, "data-dir", cmp.Or(os.Getenv("TODO_DATA_DIR"), defaultDataDir()), "local state directory (env TODO_DATA_DIR)")
	flags.StringVar(&s.backend, "store", storage.BackendFile, "local storage backend: file | sqlite | memory")
	flags.StringVar(&s.logLevel, "log-level", "warn", "log level")
	flags.StringVar(&s.caFile, "ca", os.Getenv("TODO_CA_FILE"), "PEM certificate to trust for https servers (env TODO_CA_FILE)")

	get := func() *app { return a }
	root.AddCommand(
		registerCmd(get),
		loginCmd(get),
		logoutCmd(get),
		addCmd(get),
		listCmd(get),
		doneCmd(get),
		editCmd(get),
		rmCmd(get),
		syncCmd(get),
		watchCmd(get),
	)
	return root
}
