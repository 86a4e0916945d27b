package relay

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/websocket"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/events"
	"github.com/airenas/scribe/internal/pkg/identity"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/pipeline"
	"github.com/airenas/scribe/internal/pkg/records"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Auth validates tokens and manages sessions
type Auth interface {
	SignUp(ctx context.Context, email, password, fullName string) (*identity.Session, error)
	SignIn(ctx context.Context, email, password string) (*identity.Session, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*persistence.Identity, error)
	CurrentUser(ctx context.Context, token string) (*persistence.Identity, error)
	Resend(ctx context.Context, email string) error
	Recover(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, token, password string) (*persistence.Identity, error)
}

// Records is owner scoped transcription store
type Records interface {
	List(ctx context.Context, owner string) ([]*persistence.Transcription, error)
	Get(ctx context.Context, id, owner string) (*persistence.Transcription, error)
	Create(ctx context.Context, owner string, in *records.NewRecord) (*persistence.Transcription, error)
	Update(ctx context.Context, id, owner string, upd *persistence.TranscriptionUpdate) (*persistence.Transcription, error)
	Delete(ctx context.Context, id, owner string) error
}

// Submitter runs audio submissions
type Submitter interface {
	Submit(ctx context.Context, in *pipeline.Submission) (*persistence.Transcription, error)
}

// FileReader loads file by name
type FileReader interface {
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
}

// WSConnHandler keeps owner's event connections
type WSConnHandler interface {
	HandleConnection(conn events.WsConn, owner string) error
}

// Data keeps data required for service work
type Data struct {
	Port        int
	Auth        Auth
	Records     Records
	Pipeline    Submitter
	Reader      FileReader
	WSHandler   WSConnHandler
	CORSOrigins []string
	BodyLimit   string
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP scribe relay")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 10 * time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Auth == nil {
		return fmt.Errorf("no auth")
	}
	if data.Records == nil {
		return fmt.Errorf("no records")
	}
	if data.Pipeline == nil {
		return fmt.Errorf("no pipeline")
	}
	if data.Reader == nil {
		return fmt.Errorf("no file reader")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no WSHandler")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

// logFormat writes the path only, the query may carry the access token
const logFormat = `{"time":"${time_rfc3339_nano}","remote_ip":"${remote_ip}","host":"${host}",` +
	`"method":"${method}","path":"${path}","status":${status},"error":"${error}",` +
	`"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n"

// logOutput is the access log writer, nil means the echo logger output
var logOutput io.Writer

func init() {
	promMdlw = prometheus.NewPrometheus("scribe_api", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{Format: logFormat, Output: logOutput}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins(data.CORSOrigins),
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept, "Range"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))
	e.Use(middleware.BodyLimit(bodyLimit(data.BodyLimit)))
	promMdlw.Use(e)

	e.GET("/live", live(data))

	ag := e.Group("/api/auth")
	ag.POST("/register", register(data))
	ag.POST("/login", login(data))
	ag.POST("/logout", logout(data))
	ag.GET("/user", currentUser(data))
	ag.POST("/resend", resend(data))
	ag.POST("/recover", recoverPassword(data))
	ag.PUT("/password", updatePassword(data))

	tg := e.Group("/api/transcriptions", authenticate(data))
	tg.GET("", list(data))
	tg.POST("", create(data))
	tg.GET("/:id", get(data))
	tg.PUT("/:id", update(data))
	tg.DELETE("/:id", remove(data))
	tg.GET("/:id/audio", audio(data))
	tg.HEAD("/:id/audio", audio(data))

	e.GET("/api/events", subscribe(data), authenticateUpgrade(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func corsOrigins(o []string) []string {
	if len(o) == 0 {
		return []string{"*"}
	}
	return o
}

func bodyLimit(s string) string {
	if s == "" {
		return "50M"
	}
	return s
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func subscribe(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		owner := identityOf(c)
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return nil
		}
		defer ws.Close()
		return data.WSHandler.HandleConnection(ws, owner.ID)
	}
}
