package main

import (
	"context"
	"strings"

	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/auth"
	"github.com/airenas/scribe/internal/pkg/events"
	"github.com/airenas/scribe/internal/pkg/identity"
	"github.com/airenas/scribe/internal/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/pipeline"
	"github.com/airenas/scribe/internal/pkg/postgres"
	"github.com/airenas/scribe/internal/pkg/records"
	"github.com/airenas/scribe/internal/pkg/relay"
	"github.com/airenas/scribe/internal/pkg/transcriber"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/color"
)

func main() {
	if err := godotenv.Load(); err == nil {
		goapp.Log.Info().Msg("loaded .env")
	}
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &relay.Data{}
	data.Port = cfg.GetInt("port")
	data.CORSOrigins = splitList(cfg.GetString("cors.origins"))
	data.BodyLimit = cfg.GetString("upload.maxSize")

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	addDBLog(dbConfig)

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	if err := db.Live(ctx); err != nil {
		goapp.Log.Warn().Err(err).Msg("db not ready")
	}

	filer, err := miniofs.NewFiler(ctx, miniofs.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key"),
		Secure: cfg.GetBool("filer.https")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}
	data.Reader = filer

	sender, err := postgres.NewSender(dbPool, messages.Work)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	idp, err := identity.NewClient(cfg.GetString("identity.url"), cfg.GetString("identity.key"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init identity client")
	}
	data.Auth, err = auth.NewService(idp, db)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init auth")
	}

	recs, err := records.NewService(db, sender)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init records")
	}
	data.Records = recs

	tr, err := transcriber.NewFromConfig(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcriber")
	}

	keeper := events.NewKeeper()
	data.WSHandler = keeper

	data.Pipeline, err = pipeline.New(filer, tr, recs, keeper)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init pipeline")
	}

	go utils.RunPerfEndpoint()

	err = relay.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

func splitList(s string) []string {
	var res []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			res = append(res, v)
		}
	}
	return res
}

func addDBLog(dbConfig *pgxpool.Config) {
	logFunc := goapp.Log.Debug().Msg
	dbConfig.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		logFunc("after connect")
		return nil
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
                   _ __       
   ______________(_) /_  ___ 
  / ___/ ___/ ___/ / __ \/ _ \
 (__  ) /__/ /  / / /_/ /  __/
/____/\___/_/  /_/_.___/\___/  
                  ____ _____  (_)
                 / __ ` + "`" + `/ __ \/ /
                / /_/ / /_/ / / 
                \__,_/ .___/_/   v: %s
                    /_/          
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/scribe"))
}
