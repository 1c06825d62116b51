package main

import (
	"context"
	"io"
	"jobflow/account"
	"jobflow/bizerror"
	"jobflow/common"
	"jobflow/domain"
	"jobflow/domain/flow"
	"jobflow/event"
	"jobflow/infra/tracing"
	"jobflow/persistence"
	"jobflow/servehttp"
	"jobflow/session"
	"jobflow/sessions"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegerlog "github.com/uber/jaeger-client-go/log"
	"github.com/uber/jaeger-lib/metrics"
)

func main() {
	logrus.Infoln("service start")

	tracerCloser, err := buildTracer()
	if err != nil {
		logrus.Fatalf("failed to init tracer %v\n", err)
	}
	defer tracerCloser.Close()

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		logrus.Fatalf("database connection failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	if err := migrate(); err != nil {
		logrus.Fatalf("database migration failed %v\n", err)
	}
	if err := account.BootstrapAdmin(); err != nil {
		logrus.Fatalf("failed to bootstrap admin account %v\n", err)
	}
	if err := flow.BootstrapPlatformStages(); err != nil {
		logrus.Fatalf("failed to bootstrap platform stages %v\n", err)
	}

	engine := gin.New()
	engine.Use(bizerror.ErrorHandling(), tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, common.GetServiceName())
	})

	sessions.RegisterSessionsHandler(engine)
	sessions.RegisterSessionHandler(engine, session.SimpleAuthFilter())

	account.RegisterUserHandler(engine, session.SimpleAuthFilter())
	servehttp.RegisterCompanyHandler(engine, session.SimpleAuthFilter())
	servehttp.RegisterStageHandler(engine, session.SimpleAuthFilter())
	servehttp.RegisterTransitionHandler(engine, session.SimpleAuthFilter())
	servehttp.RegisterJobHandler(engine, session.SimpleAuthFilter())

	servehttp.StartHTTPServer(engine)
}

func migrate() error {
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	return db.AutoMigrate(
		&account.User{}, &account.CompanyMember{},
		&domain.Company{},
		&domain.Stage{}, &domain.StageQuestion{}, &domain.StageTransition{},
		&domain.Job{}, &domain.JobResponse{}, &domain.StageAuditEntry{},
		&event.EventRecord{},
	).Error
}

// buildTracer installs the global opentracing tracer, honoring JAEGER_*
// environment variables.
func buildTracer() (io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = common.GetServiceName()
	}
	tracer, closer, err := cfg.NewTracer(
		jaegercfg.Logger(jaegerlog.StdLogger),
		jaegercfg.Metrics(metrics.NullFactory),
	)
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}
