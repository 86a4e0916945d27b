//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/airenas/scribe/internal/pkg/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

func WaitForOpenOrFail(ctx context.Context, URL string) {
	u, err := url.Parse(URL)
	if err != nil {
		log.Fatalf("FAIL: can't parse %s", URL)
	}
	for {
		err = listen(net.JoinHostPort(u.Hostname(), u.Port()))
		if err == nil {
			return
		}
		select {
		case <-ctx.Done():
			log.Fatalf("FAIL: can't access %s", URL)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func GetEnvOrFail(s string) string {
	res := os.Getenv(s)
	if res == "" {
		log.Fatalf("no env '%s'", s)
	}
	return res
}

func listen(urlStr string) error {
	log.Printf("dial %s", urlStr)
	conn, err := net.DialTimeout("tcp", urlStr, time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	return nil
}

func waitForDB(ctx context.Context, URL string) {
	dbPool, err := pgxpool.New(ctx, URL)
	if err != nil {
		log.Fatalf("FAIL: can't init db pool")
	}
	defer dbPool.Close()

	for {
		log.Printf("check db live ...")
		db, err := postgres.NewDB(dbPool)
		if err == nil {
			if err = db.Live(ctx); err == nil {
				return
			}
			log.Print(err.Error())
		}
		select {
		case <-ctx.Done():
			log.Fatalf("FAIL: can't access db")
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func testWAV(seconds int) []byte {
	const rate = 8000
	size := rate * 2 * seconds
	res := make([]byte, 44+size)
	copy(res[0:], "RIFF")
	binary.LittleEndian.PutUint32(res[4:], uint32(36+size))
	copy(res[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(res[16:], 16)
	binary.LittleEndian.PutUint16(res[20:], 1)
	binary.LittleEndian.PutUint16(res[22:], 1)
	binary.LittleEndian.PutUint32(res[24:], rate)
	binary.LittleEndian.PutUint32(res[28:], rate*2)
	binary.LittleEndian.PutUint16(res[32:], 2)
	binary.LittleEndian.PutUint16(res[34:], 16)
	copy(res[36:], "data")
	binary.LittleEndian.PutUint32(res[40:], uint32(size))
	return res
}
