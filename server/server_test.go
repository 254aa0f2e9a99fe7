package server

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kscout/crossdomain-xmlrpc/config"
	"github.com/kscout/crossdomain-xmlrpc/handlers"
	"github.com/kscout/crossdomain-xmlrpc/services"
	"github.com/kscout/crossdomain-xmlrpc/xmlrpc"

	"github.com/Noah-Huppert/golog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:            8000,
		RPCPaths:        []string{"/rpc", "/RPC2"},
		AllowNone:       true,
		EncodeThreshold: 1400,
		MaxChunkSize:    1024,
		MaxDecodeSize:   1024 * 1024,
		Introspection:   true,
		DefaultService:  services.DemoService,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	s, err := New(context.Background(), cfg, golog.NewStdLogger("server-test"))
	require.NoError(t, err)
	require.NoError(t, services.Register(s.Registry()))

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// post makes an XML-RPC call over HTTP
func post(t *testing.T, url string, method string, args ...interface{}) (*http.Response, interface{}, error) {
	body, err := xmlrpc.EncodeCall(method, args...)
	require.NoError(t, err)

	resp, err := http.Post(url, xmlrpc.ContentType, bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(respBody))

	result, err := xmlrpc.ParseResponse(respBody)
	return resp, result, err
}

// TestServerCall ensures calls work on every RPC path
func TestServerCall(t *testing.T) {
	ts := newTestServer(t, testConfig())

	for _, path := range []string{"/rpc", "/RPC2"} {
		resp, result, err := post(t, ts.URL+path, "demo.add", 2, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(4), result)
		assert.Equal(t, "*", resp.Header.Get(handlers.AllowOriginHeader))
		assert.Equal(t, "text/xml", resp.Header.Get("Content-Type"))
	}

	_, result, err := post(t, ts.URL+"/rpc", "system.listMethods")
	require.NoError(t, err)
	assert.Contains(t, result, "demo.echo")
	assert.Contains(t, result, "system.methodHelp")

	_, _, err = post(t, ts.URL+"/rpc", "demo.fail", "nope")
	assert.Equal(t, &xmlrpc.Fault{Code: services.FaultDemo, String: "nope"}, err)
}

// TestServerNoIntrospection ensures system methods are only served when enabled
func TestServerNoIntrospection(t *testing.T) {
	cfg := testConfig()
	cfg.Introspection = false
	ts := newTestServer(t, cfg)

	_, _, err := post(t, ts.URL+"/rpc", "system.listMethods")
	assert.IsType(t, &xmlrpc.Fault{}, err)
}

// TestServerConcurrentCalls ensures concurrent calls each get their own response
func TestServerConcurrentCalls(t *testing.T) {
	ts := newTestServer(t, testConfig())

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			body, err := xmlrpc.EncodeCall("demo.echo", fmt.Sprintf("call-%d", i))
			if err != nil {
				errs <- err
				return
			}

			resp, err := http.Post(ts.URL+"/rpc", xmlrpc.ContentType, bytes.NewReader(body))
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()

			respBody, err := ioutil.ReadAll(resp.Body)
			if err != nil {
				errs <- err
				return
			}

			result, err := xmlrpc.ParseResponse(respBody)
			if err != nil {
				errs <- err
				return
			}

			expected := []interface{}{fmt.Sprintf("call-%d", i)}
			if !assert.ObjectsAreEqual(expected, result) {
				errs <- fmt.Errorf("call %d got response %v", i, result)
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

// TestServerCORSEverywhere ensures every kind of response carries
// Access-Control-Allow-Origin
func TestServerCORSEverywhere(t *testing.T) {
	ts := newTestServer(t, testConfig())

	for _, c := range []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodOptions, "/anything", "", http.StatusOK},
		{http.MethodPost, "/not-rpc", "<methodCall/>", http.StatusNotFound},
		{http.MethodPut, "/rpc", "", http.StatusNotImplemented},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
	} {
		r, err := http.NewRequest(c.method, ts.URL+c.path, strings.NewReader(c.body))
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(r)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, c.status, resp.StatusCode, "%s %s", c.method, c.path)
		assert.Equal(t, "*", resp.Header.Get(handlers.AllowOriginHeader), "%s %s", c.method, c.path)
		assert.NotEmpty(t, resp.Header.Get(handlers.RequestIDHeader))
	}
}

// TestServerMetrics ensures the custom metrics are exported
func TestServerMetrics(t *testing.T) {
	ts := newTestServer(t, testConfig())

	_, _, err := post(t, ts.URL+"/rpc", "demo.add", 1, 1)
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "crossdomain_xmlrpc_api_requests_total")
	assert.Contains(t, string(body), "crossdomain_xmlrpc_api_response_durations_milliseconds")
}
