package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appcourier/appcourier/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestSendTextReturnsMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages/text", r.URL.Path)
		require.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "conv-1", payload["conversation_id"])
		require.Equal(t, "hello", payload["text"])

		w.Write([]byte(`{"message_id":"msg-42"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "sekrit", 0)
	id, err := c.SendText(context.Background(), "conv-1", "hello")
	require.NoError(t, err)
	require.Equal(t, "msg-42", id)
}

func TestSendPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages/poll", r.URL.Path)

		var payload struct {
			Title           string   `json:"title"`
			Options         []string `json:"options"`
			SelectableCount int      `json:"selectable_count"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, []string{"1. A", "2. B"}, payload.Options)
		require.Equal(t, 1, payload.SelectableCount)

		w.Write([]byte(`{"message_id":"poll-7"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", 0)
	id, err := c.SendPoll(context.Background(), "conv-1", "pick one", []string{"1. A", "2. B"})
	require.NoError(t, err)
	require.Equal(t, "poll-7", id)
}

func TestSendDocumentMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages/document", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		var meta map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("meta")), &meta))
		require.Equal(t, "demo.apk", meta["filename"])
		require.Equal(t, "application/vnd.android.package-archive", meta["mime_type"])

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()

		buf := make([]byte, 16)
		n, _ := f.Read(buf)
		require.Equal(t, "apk bytes", string(buf[:n]))

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, "", 0)
	err := c.SendDocument(context.Background(), "conv-1", domain.Document{
		Filename: "demo.apk",
		MimeType: "application/vnd.android.package-archive",
		Caption:  "here you go",
		Data:     []byte("apk bytes"),
	})
	require.NoError(t, err)
}

func TestNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "", 0)

	_, err := c.SendText(context.Background(), "conv-1", "hello")
	require.ErrorIs(t, err, domain.ErrBadStatus)

	err = c.EditText(context.Background(), "conv-1", "msg-1", "50%")
	require.ErrorIs(t, err, domain.ErrBadStatus)
}
