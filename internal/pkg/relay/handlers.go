package relay

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/identity"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/pipeline"
	"github.com/airenas/scribe/internal/pkg/records"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/labstack/echo/v4"
)

const (
	identityKey = "identity"
	tokenParam  = "access_token"
)

func authenticate(data *Data) echo.MiddlewareFunc {
	return authMiddleware(data, false)
}

// authenticateUpgrade also takes the token from the query,
// browsers can't set headers on websocket upgrade
func authenticateUpgrade(data *Data) echo.MiddlewareFunc {
	return authMiddleware(data, true)
}

func authMiddleware(data *Data, allowQuery bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request())
			if token == "" && allowQuery {
				token = c.QueryParam(tokenParam)
			}
			id, err := data.Auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

func identityOf(c echo.Context) *persistence.Identity {
	res, _ := c.Get(identityKey).(*persistence.Identity)
	if res == nil {
		return &persistence.Identity{}
	}
	return res
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func register(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("register method")()
		var in api.RegisterRequest
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong body")
		}
		s, err := data.Auth.SignUp(c.Request().Context(), in.Email, in.Password, in.FullName)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, toSessionResponse(s))
	}
}

func login(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("login method")()
		var in api.Credentials
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong body")
		}
		s, err := data.Auth.SignIn(c.Request().Context(), in.Email, in.Password)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, toSessionResponse(s))
	}
}

func logout(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		if err := data.Auth.SignOut(c.Request().Context(), bearerToken(c.Request())); err != nil {
			goapp.Log.Warn().Err(err).Msg("remote sign out failed")
		}
		return c.JSON(http.StatusOK, api.MessageResponse{Success: true, Message: "signed out"})
	}
}

func currentUser(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		id, err := data.Auth.CurrentUser(c.Request().Context(), bearerToken(c.Request()))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.UserResponse{Success: true, User: toUser(id)})
	}
}

func resend(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		var in api.ResendRequest
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong body")
		}
		if err := data.Auth.Resend(c.Request().Context(), in.Email); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.MessageResponse{Success: true, Message: "confirmation email sent"})
	}
}

func recoverPassword(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		var in api.RecoverRequest
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong body")
		}
		if err := data.Auth.Recover(c.Request().Context(), in.Email); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.MessageResponse{Success: true, Message: "password reset email sent"})
	}
}

// updatePassword works with the session token and with the token of the recovery link
func updatePassword(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("password method")()
		var in api.PasswordRequest
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong body")
		}
		id, err := data.Auth.UpdatePassword(c.Request().Context(), bearerToken(c.Request()), in.Password)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.UserResponse{Success: true, User: toUser(id)})
	}
}

func list(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("list method")()
		res, err := data.Records.List(c.Request().Context(), identityOf(c).ID)
		if err != nil {
			return err
		}
		out := api.TranscriptionsResponse{Success: true, Transcriptions: make([]*api.Transcription, 0, len(res))}
		for _, r := range res {
			out.Transcriptions = append(out.Transcriptions, toAPI(r))
		}
		return c.JSON(http.StatusOK, out)
	}
}

func get(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		res, err := data.Records.Get(c.Request().Context(), c.Param("id"), identityOf(c).ID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.TranscriptionResponse{Success: true, Transcription: toAPI(res)})
	}
}

func create(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("create method")()
		var in api.CreateRequest
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong body")
		}
		ctx := c.Request().Context()
		owner := identityOf(c).ID
		var res *persistence.Transcription
		var err error
		if in.AudioData == "" {
			res, err = data.Records.Create(ctx, owner, &records.NewRecord{Title: in.Title, Content: in.Content,
				APIUsed: in.APIUsed, Duration: in.Duration})
		} else {
			audio, mime, derr := decodeAudio(in.AudioData)
			if derr != nil {
				return api.NewValidationError(api.PrmAudio)
			}
			if in.MimeType == "" {
				in.MimeType = mime
			}
			res, err = data.Pipeline.Submit(ctx, &pipeline.Submission{Owner: owner, Title: in.Title, Audio: audio,
				MimeType: in.MimeType, FileName: in.FileName, Duration: in.Duration})
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, api.TranscriptionResponse{Success: true, Transcription: toAPI(res)})
	}
}

func update(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		var in api.UpdateRequest
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong body")
		}
		res, err := data.Records.Update(c.Request().Context(), c.Param("id"), identityOf(c).ID,
			&persistence.TranscriptionUpdate{Title: in.Title, Content: in.Content})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.TranscriptionResponse{Success: true, Transcription: toAPI(res)})
	}
}

func remove(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		if err := data.Records.Delete(c.Request().Context(), c.Param("id"), identityOf(c).ID); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.MessageResponse{Success: true, Message: "deleted"})
	}
}

// decodeAudio accepts plain base64 or a data URL, returns bytes and the data URL mime
func decodeAudio(s string) ([]byte, string, error) {
	mime := ""
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, "", api.ErrDecode
		}
		meta := strings.TrimSuffix(s[len("data:"):i], ";base64")
		mime = meta
		s = s[i+1:]
	}
	res, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", err
	}
	return res, mime, nil
}

// AudioPath is the public URL of the record audio
func AudioPath(id string) string {
	return "/api/transcriptions/" + id + "/audio"
}

func toAPI(r *persistence.Transcription) *api.Transcription {
	res := &api.Transcription{ID: r.ID, UserID: r.UserID, Title: r.Title, Content: r.Content, APIUsed: r.APIUsed,
		Duration: r.Duration, CreatedAt: r.Created, UpdatedAt: r.Updated}
	if utils.FromSQLStr(r.AudioURL) != "" {
		res.AudioURL = AudioPath(r.ID)
	}
	return res
}

func toUser(id *persistence.Identity) *api.User {
	if id == nil {
		return nil
	}
	return &api.User{ID: id.ID, Email: id.Email, FullName: id.FullName}
}

func toSessionResponse(s *identity.Session) *api.SessionResponse {
	return &api.SessionResponse{Success: true, User: toUser(s.User), AccessToken: s.AccessToken, ExpiresAt: s.ExpiresAt}
}
