package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPayload(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "argument", args: []string{`{"total":1}`}, want: `{"total":1}`},
		{name: "stdin dash", stdin: " {\"total\":2}\n", args: []string{"-"}, want: `{"total":2}`},
		{name: "stdin without args", stdin: `[1,2]`, want: `[1,2]`},
		{name: "empty", stdin: "  ", wantErr: true},
		{name: "not json", args: []string{"total=1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPayload(strings.NewReader(tt.stdin), tt.args, "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestStockPayload(t *testing.T) {
	got, err := stockPayload("TEA-GRN", -2, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sku":"TEA-GRN","delta":-2}`, string(got))

	_, err = stockPayload("TEA-GRN", 0, "")
	assert.Error(t, err)
}

func TestConfirm(t *testing.T) {
	for answer, want := range map[string]bool{"y\n": true, "Да\n": true, "n\n": false, "": false} {
		var out bytes.Buffer
		ok, err := confirm(strings.NewReader(answer), &out, "Удалить?")
		require.NoError(t, err)
		assert.Equal(t, want, ok, answer)
		assert.Contains(t, out.String(), "[y/N]")
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "4.0 KiB", formatBytes(4096))
	assert.Equal(t, "1.5 MiB", formatBytes(3*512*1024))
}

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	return out.String()
}

func TestCLI_SaleThenStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("APP_ENV", "prod")
	t.Setenv("DATA_PATH", filepath.Join(t.TempDir(), "offline.db"))
	t.Setenv("SERVER_ADDRESS", strings.TrimPrefix(srv.URL, "http://"))
	t.Setenv("BACKGROUND_SYNC", "false")

	var rec struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(execute(t, "sale", "add", `{"total":100}`, "--json")), &rec))
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, "pending", rec.Status)

	var st struct {
		Online bool `json:"online"`
		Store  struct {
			Transactions struct {
				Pending int `json:"pending"`
			} `json:"transactions"`
		} `json:"store"`
	}
	require.NoError(t, json.Unmarshal([]byte(execute(t, "status", "--json")), &st))
	assert.False(t, st.Online)
	assert.Equal(t, 1, st.Store.Transactions.Pending)

	out := execute(t, "clear", "--yes", "--json")
	assert.Contains(t, out, "cleared")
}
