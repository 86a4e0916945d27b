package relay

import (
	"io/fs"
	"net/http"
	"path"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

func audio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("audio method")()
		rec, err := data.Records.Get(c.Request().Context(), c.Param("id"), identityOf(c).ID)
		if err != nil {
			return err
		}
		name := utils.FromSQLStr(rec.AudioURL)
		if name == "" {
			return api.ErrNotFound
		}
		return serveFile(c, data, name)
	}
}

func serveFile(c echo.Context, data *Data, name string) error {
	goapp.Log.Info().Str("file", name).Msg("loading")
	file, err := data.Reader.LoadFile(c.Request().Context(), name)
	if err != nil {
		if isNotFound(err) {
			goapp.Log.Warn().Err(err).Send()
			return api.ErrNotFound
		}
		return errors.Wrap(err, "can't get file")
	}
	defer file.Close()
	stGetter, ok := file.(interface{ Stat() (fs.FileInfo, error) })
	if !ok {
		return errors.New(`file does not implement "interface{ Stat() (fs.FileInfo, error)"`)
	}
	stat, err := stGetter.Stat()
	if err != nil {
		if isNotFound(err) {
			goapp.Log.Warn().Err(err).Send()
			return api.ErrNotFound
		}
		return errors.Wrap(err, "can't get file stat")
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, utils.MimeByName(name))
	w.Header().Set(echo.HeaderContentDisposition, "inline; filename="+path.Base(name))
	http.ServeContent(w, c.Request(), path.Base(name), stat.ModTime(), file)
	return nil
}

func isNotFound(err error) bool {
	var errTest minio.ErrorResponse
	return errors.As(err, &errTest) && errTest.StatusCode == http.StatusNotFound
}
