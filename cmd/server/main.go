package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ogurasousui/shiftboard/internal/adapters/http/handler"
	"github.com/ogurasousui/shiftboard/internal/adapters/repository/memory"
	"github.com/ogurasousui/shiftboard/internal/adapters/repository/postgres"
	"github.com/ogurasousui/shiftboard/internal/core/account"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
	"github.com/ogurasousui/shiftboard/internal/core/shift"
	"github.com/ogurasousui/shiftboard/internal/platform/config"
	pg "github.com/ogurasousui/shiftboard/internal/platform/db/postgres"
	"github.com/ogurasousui/shiftboard/internal/platform/obs"
	"github.com/ogurasousui/shiftboard/internal/platform/server"
	"github.com/ogurasousui/shiftboard/internal/platform/token"
)

var demoEmployees = []employee.CreateEmployeeInput{
	{Name: "John Doe", EmployeeCode: "EMP001", Department: "Engineering"},
	{Name: "Jane Smith", EmployeeCode: "EMP002", Department: "Operations"},
	{Name: "Bob Johnson", EmployeeCode: "EMP003", Department: "Administration"},
}

type services struct {
	employees *employee.Service
	shifts    *shift.Service
	accounts  *account.Service
	ready     handler.Pinger
	close     func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	svc, err := buildServices(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	defer svc.close()

	if admin := cfg.Auth.BootstrapAdmin; admin.Enabled() {
		created, err := svc.accounts.EnsureBootstrapAdmin(ctx, admin.Username, admin.Password)
		if err != nil {
			log.Fatalf("failed to create bootstrap admin: %v", err)
		}
		if created {
			log.Printf("created bootstrap admin %q", admin.Username)
		}
	}

	if cfg.Database.SeedDemo {
		if err := seedDemo(ctx, svc.employees); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
	}

	issuer, err := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("failed to initialize token issuer: %v", err)
	}

	router := handler.NewRouter(handler.Dependencies{
		Employees:       svc.employees,
		Shifts:          svc.shifts,
		Accounts:        svc.accounts,
		Tokens:          issuer,
		Metrics:         obs.NewMetrics(),
		Ready:           svc.ready,
		LoginRatePerSec: cfg.Server.LoginRatePerSec,
		LoginBurst:      cfg.Server.LoginBurst,
		TrustProxy:      cfg.Server.TrustProxy,
	})

	srv := server.New(cfg.Server, router)
	log.Printf("shiftboard starting (driver=%s)", cfg.Database.Driver)

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server stopped with error: %v", err)
	}
}

func buildServices(ctx context.Context, cfg config.DatabaseConfig) (*services, error) {
	if cfg.Driver == config.DriverMemory {
		store := memory.NewStore()
		return &services{
			employees: employee.NewService(store.Employees(), nil, nil),
			shifts:    shift.NewService(store.Shifts(), store.Employees(), nil, nil),
			accounts:  account.NewService(store.Accounts(), store.Employees(), nil, nil),
			ready:     store,
			close:     func() {},
		}, nil
	}

	dbPool, err := pg.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	txManager := pg.NewTransactionManager(dbPool, pg.TxOptionsFromConfig(cfg)...)
	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	return &services{
		employees: employee.NewService(employeeRepo, nil, txManager),
		shifts:    shift.NewService(postgres.NewShiftRepository(dbPool), employeeRepo, nil, txManager),
		accounts:  account.NewService(postgres.NewAccountRepository(dbPool), employeeRepo, nil, txManager),
		ready:     dbPool,
		close:     dbPool.Close,
	}, nil
}

// seedDemo は社員が 1 件もない場合にデモ用の社員を登録します。
func seedDemo(ctx context.Context, employees *employee.Service) error {
	existing, err := employees.ListEmployees(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, in := range demoEmployees {
		if _, err := employees.CreateEmployee(ctx, in); err != nil {
			return err
		}
	}
	log.Printf("seeded %d demo employees", len(demoEmployees))
	return nil
}
