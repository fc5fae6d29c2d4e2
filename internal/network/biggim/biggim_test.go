package biggim_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatwork/heatwork/internal/network/biggim"
)

func TestClientFetchColumn(t *testing.T) {
	tests := map[string]struct {
		tables      string
		queryStatus func(polls int64) string
		csv         string
		expNodes    []string
		expWeight   float64
		expErr      bool
	}{
		"A finished query builds the network from the result table": {
			tables: `[{"name": "BigGIM_v1", "default": true}]`,
			queryStatus: func(int64) string {
				return "complete"
			},
			csv:       "Gene1,Gene2,GTEx_Brain_Correlation\nTP53,MDM2,0.91\nTP53,BRCA1,0.85\n",
			expNodes:  []string{"BRCA1", "MDM2", "TP53"},
			expWeight: 0.91,
		},
		"A running query is polled until it finishes": {
			tables: `[{"name": "BigGIM_v1", "default": true}]`,
			queryStatus: func(polls int64) string {
				if polls < 3 {
					return "running"
				}
				return "complete"
			},
			csv:       "Gene1,Gene2,GTEx_Brain_Correlation\nTP53,MDM2,0.91\n",
			expNodes:  []string{"MDM2", "TP53"},
			expWeight: 0.91,
		},
		"A missing weight column defaults edge weights to 1": {
			tables: `[{"name": "BigGIM_v1", "default": true}]`,
			queryStatus: func(int64) string {
				return "complete"
			},
			csv:       "Gene1,Gene2\nTP53,MDM2\n",
			expNodes:  []string{"MDM2", "TP53"},
			expWeight: 1,
		},
		"A service without a default table is an acquisition failure": {
			tables: `[{"name": "BigGIM_v1", "default": false}]`,
			expErr: true,
		},
		"A result table without gene columns is rejected": {
			tables: `[{"name": "BigGIM_v1", "default": true}]`,
			queryStatus: func(int64) string {
				return "complete"
			},
			csv:    "Foo,Bar\na,b\n",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var polls int64
			mux := http.NewServeMux()
			var server *httptest.Server

			mux.HandleFunc("/api/metadata/table", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, test.tables)
			})
			mux.HandleFunc("/api/biggim/query", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "GTEx_Brain_Correlation,0.8", r.URL.Query().Get("restriction_gt"))
				assert.Equal(t, "BigGIM_v1", r.URL.Query().Get("table"))
				fmt.Fprint(w, `{"request_id": "req-1"}`)
			})
			mux.HandleFunc("/api/biggim/status/req-1", func(w http.ResponseWriter, r *http.Request) {
				status := test.queryStatus(atomic.AddInt64(&polls, 1))
				fmt.Fprintf(w, `{"status": %q, "request_uri": [%q]}`, status, server.URL+"/result.csv")
			})
			mux.HandleFunc("/result.csv", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, test.csv)
			})

			server = httptest.NewServer(mux)
			defer server.Close()

			client, err := biggim.NewClient(biggim.ClientConfig{
				BaseURL:      server.URL + "/api",
				PollInterval: time.Millisecond,
			})
			require.NoError(t, err)

			g, err := client.FetchColumn(context.Background(), "GTEx_Brain_Correlation")

			if test.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expNodes, g.Nodes())
			assert.Equal(t, test.expWeight, g.Weight(test.expNodes[len(test.expNodes)-1], "MDM2"))
		})
	}
}

func TestClientFetchColumnContextCancel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/metadata/table", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "BigGIM_v1", "default": true}]`)
	})
	mux.HandleFunc("/api/biggim/query", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"request_id": "req-1"}`)
	})
	mux.HandleFunc("/api/biggim/status/req-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "running"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := biggim.NewClient(biggim.ClientConfig{
		BaseURL:      server.URL + "/api",
		PollInterval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.FetchColumn(ctx, "GTEx_Brain_Correlation")
	require.ErrorIs(t, err, context.Canceled)
}
