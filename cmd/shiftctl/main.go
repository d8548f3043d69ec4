package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	clientcfg "github.com/ogurasousui/shiftboard/internal/client/config"
)

const usage = `usage: shiftctl [flags] <command> [args]

commands:
  login -username NAME [-password PASS]
  logout
  whoami
  open <route>                    /dashboard /employees /shifts /admin /login
  employees add -name N -department D [-code C]
  employees rm <id>
  shifts add -employee ID -date YYYY-MM-DD [-start HH:MM] [-end HH:MM] [-type T]
  shifts rm <id>
  shifts export -o FILE [-employee ID] [-date YYYY-MM-DD]
  admin assign -employee ID -role USER|ADMIN

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.SetOutput(stderr)
	log.SetFlags(0)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	fs := flag.NewFlagSet("shiftctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", envOr("SHIFTCTL_CONFIG", "assets/shiftctl.yaml"), "path to client config file")
		ephemeral  = fs.Bool("ephemeral", false, "keep the session in memory only")
	)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := clientcfg.Load(*configPath)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	if *ephemeral {
		cfg.Session.Backend = clientcfg.SessionMemory
	}

	a, err := newApp(ctx, cfg, stdout)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	defer a.close()

	if err := a.dispatch(ctx, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		a.report(ctx, err)
		return 1
	}
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
