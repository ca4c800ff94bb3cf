package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genzchat/genzchat/internal/config"
	"github.com/genzchat/genzchat/internal/handler"
	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/service/responder"
	"github.com/genzchat/genzchat/internal/service/transcript"
)

func testConfig() *config.Config {
	return &config.Config{
		Client: config.ClientConfig{
			BaseURL:       "http://127.0.0.1:1",
			Personality:   persona.DefaultKey,
			HeaderTimeout: 5 * time.Second,
		},
		Log: config.LogConfig{Level: "error"},
	}
}

func TestPingReportsModes(t *testing.T) {
	resp, err := responder.New(context.Background(), 0)
	require.NoError(t, err)
	srv := httptest.NewServer(handler.NewRouter(persona.NewMemoryStore(persona.Seed()), transcript.NewService(), resp))
	defer srv.Close()

	root := newRootCmd(testConfig())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"ping", "--base-url", srv.URL})

	require.NoError(t, root.Execute())
	assert.Equal(t, "ok: "+srv.URL+" serves 6 modes\n", out.String())
}

func TestPingFailsWhenUnreachable(t *testing.T) {
	root := newRootCmd(testConfig())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"ping", "--timeout", "1s"})

	err := root.Execute()

	require.Error(t, err)
	assert.True(t, strings.Contains(out.String(), "Error"), out.String())
}

func TestFlagsDefaultToConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Client.Personality = "study_buddy"
	cfg.Client.Plain = true

	root := newRootCmd(cfg)

	assert.Equal(t, "study_buddy", root.Flags().Lookup("personality").DefValue)
	assert.Equal(t, "true", root.Flags().Lookup("plain").DefValue)
	assert.Equal(t, cfg.Client.BaseURL, root.PersistentFlags().Lookup("base-url").DefValue)
}
