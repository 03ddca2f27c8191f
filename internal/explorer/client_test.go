package explorer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	forensicerrors "hackscan/internal/errors"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewClient(serverURL, "test-key", 2*time.Second, logger)
}

func TestListTransactionsSortedByBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "account", r.URL.Query().Get("module"))
		assert.Equal(t, "txlist", r.URL.Query().Get("action"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Write([]byte(`{
			"status": "1",
			"message": "OK",
			"result": [
				{"hash": "0xb", "blockNumber": "200", "timeStamp": "1700000200", "from": "0x1", "to": "0x2", "value": "0", "input": "0x"},
				{"hash": "0xa", "blockNumber": "100", "timeStamp": "1700000100", "from": "0x1", "to": "0x2", "value": "1000000000000000000", "input": "0x"}
			]
		}`))
	}))
	defer server.Close()

	txs, err := newTestClient(server.URL).ListTransactions(context.Background(), "0x1")
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// 结果按区块号升序
	assert.Equal(t, "0xa", txs[0].Hash)
	assert.Equal(t, "0xb", txs[1].Hash)
	assert.Equal(t, uint64(100), txs[0].BlockNumber)
	assert.Equal(t, "1000000000000000000", txs[0].Value.String())
}

func TestListTransactionsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "0", "message": "No transactions found", "result": []}`))
	}))
	defer server.Close()

	// 地址无交易不是错误
	txs, err := newTestClient(server.URL).ListTransactions(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestListTransactionsMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListTransactions(context.Background(), "0x1")
	require.Error(t, err)
	assert.True(t, forensicerrors.IsTransport(err))
}

func TestListTransactionsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListTransactions(context.Background(), "0x1")
	require.Error(t, err)
	assert.True(t, forensicerrors.IsTransport(err))
}

func TestListTransactionsSkipsMalformedRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "1",
			"message": "OK",
			"result": [
				{"hash": "0xbad", "blockNumber": "not-a-number", "timeStamp": "0", "from": "0x1", "to": "0x2", "value": "0", "input": "0x"},
				{"hash": "0xgood", "blockNumber": "100", "timeStamp": "1700000100", "from": "0x1", "to": "0x2", "value": "0", "input": "0x"}
			]
		}`))
	}))
	defer server.Close()

	txs, err := newTestClient(server.URL).ListTransactions(context.Background(), "0x1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "0xgood", txs[0].Hash)
}

func TestListInternalCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "txlistinternal", r.URL.Query().Get("action"))
		assert.Equal(t, "0xhack", r.URL.Query().Get("txhash"))

		w.Write([]byte(`{
			"status": "1",
			"message": "OK",
			"result": [
				{"from": "0x1", "to": "0x2", "value": "500", "input": "0x"}
			]
		}`))
	}))
	defer server.Close()

	steps, err := newTestClient(server.URL).ListInternalCalls(context.Background(), "0xhack")
	require.NoError(t, err)
	require.Len(t, steps, 1)

	assert.Equal(t, "0xhack", steps[0].TransactionHash)
	assert.Equal(t, "0x1", steps[0].From)
	assert.Equal(t, "500", steps[0].Value.String())
}
