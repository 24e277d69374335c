package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cmdtrack"
	"cmdtrack/internal/logger"
)

type command struct {
	flags *GlobalFlags
}

// loadConfig merges the config file with the persistent CLI overrides.
func (c command) loadConfig() (cmdtrack.Config, error) {
	cfg, err := cmdtrack.LoadConfig(c.flags.ConfigPath)
	if err != nil {
		return cmdtrack.Config{}, err
	}
	if c.flags.Dir != "" {
		cfg.BaseDir = c.flags.Dir
	}
	if c.flags.Index != "" {
		cfg.Index = c.flags.Index
	}
	if c.flags.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func (c command) openStore() (*cmdtrack.Store, cmdtrack.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, cmdtrack.Config{}, err
	}
	s, err := cmdtrack.Open(cmdtrack.StoreOptions{
		BaseDir:   cfg.BaseDir,
		IndexMode: cfg.IndexMode(),
		Logger:    logger.New(cfg.Verbose),
	})
	if err != nil {
		return nil, cmdtrack.Config{}, err
	}
	return s, cfg, nil
}

func (c command) Run(args []string) error {
	s, cfg, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	script := strings.Join(args, " ")
	code, rec, err := s.Run(script, cfg.LoggerConfig(), logger.New(cfg.Verbose))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stderr, "tracked %s (exit %d)\n", rec.UUID, code)
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

func (c command) Status(uuid string) error {
	s, _, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	rec := s.Get(uuid)
	if rec == nil {
		return fmt.Errorf("no execution with uuid %s", uuid)
	}
	printJSON(recordView(rec))
	return nil
}

func (c command) List(f ListFlags) error {
	s, _, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	var recs []*cmdtrack.Record
	switch f.Status {
	case "":
		recs = s.GetAll()
	case string(cmdtrack.StatusExecuting), string(cmdtrack.StatusExecuted):
		recs = s.GetByStatus(cmdtrack.Status(f.Status))
	default:
		return fmt.Errorf("unknown status %q (want executing or executed)", f.Status)
	}
	printRecords(recs, f.JSON)
	return nil
}

func (c command) Recent(f RecentFlags) error {
	s, _, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	printRecords(s.GetRecent(f.Limit), f.JSON)
	return nil
}

func (c command) StatsCmd() error {
	s, _, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	printJSON(s.Stats())
	return nil
}

func (c command) Cleanup(f CleanupFlags) error {
	s, _, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	res := s.CleanupStale(cmdtrack.CleanupOptions{MaxAge: f.MaxAge, DryRun: f.DryRun})
	verb := "cleaned"
	if f.DryRun {
		verb = "would clean"
	}
	_, _ = fmt.Fprintf(os.Stdout, "%s %d stale record(s)\n", verb, res.Cleaned)
	for _, rec := range res.Records {
		_, _ = fmt.Fprintf(os.Stdout, "  %s  %s\n", rec.UUID, rec.Command)
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("cleanup: %s", strings.Join(res.Errors, "; "))
	}
	return nil
}

func (c command) Delete(uuid string) error {
	s, _, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	found, err := s.Delete(uuid)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no execution with uuid %s", uuid)
	}
	fmt.Println("deleted", uuid)
	return nil
}

func (c command) Clear() error {
	s, _, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	n := len(s.GetAll())
	if err := s.Clear(); err != nil {
		return err
	}
	fmt.Printf("cleared %d record(s)\n", n)
	return nil
}

func (c command) Verify() error {
	s, _, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	res := s.VerifyConsistency()
	printJSON(res)
	if !res.Consistent {
		return fmt.Errorf("primary database and secondary index disagree")
	}
	return nil
}

func (c command) Serve(f ServeFlags) error {
	s, cfg, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := cmdtrack.RegisterMetricsDefault(); err != nil {
		return err
	}
	addr := f.Addr
	if addr == "" {
		addr = cfg.ServeAddr
	}
	srv, err := cmdtrack.NewHTTPServer(addr, f.BasePath, s)
	if err != nil {
		return err
	}
	fmt.Printf("serving execution store on %s\n", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return srv.Close()
}
