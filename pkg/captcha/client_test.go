package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/in.php", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "userrecaptcha", q.Get("method"))
		assert.Equal(t, "site-key-123", q.Get("googlekey"))
		assert.Equal(t, "https://portal.example.com/search", q.Get("pageurl"))
		assert.Equal(t, "1", q.Get("json"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":1,"request":"job-42"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	jobID, err := client.Submit(context.Background(), "site-key-123", "https://portal.example.com/search")

	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
}

func TestSubmit_Rejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0,"request":"ERROR_WRONG_USER_KEY"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.Submit(context.Background(), "site-key", "https://portal.example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERROR_WRONG_USER_KEY")
}

func TestResult_NotReady(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/res.php", r.URL.Path)
		assert.Equal(t, "job-42", r.URL.Query().Get("id"))
		w.Write([]byte(`{"status":0,"request":"CAPCHA_NOT_READY"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Result(context.Background(), "job-42")

	require.ErrorIs(t, err, ErrNotReady)
}

func TestResult_SolverError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0,"request":"ERROR_CAPTCHA_UNSOLVABLE"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Result(context.Background(), "job-42")

	require.ErrorIs(t, err, ErrChallengeRejected)
	assert.NotErrorIs(t, err, ErrNotReady)
	assert.Contains(t, err.Error(), "ERROR_CAPTCHA_UNSOLVABLE")
}

func TestSolve_PollsUntilToken(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in.php" {
			w.Write([]byte(`{"status":1,"request":"job-7"}`))
			return
		}
		if polls.Add(1) < 3 {
			w.Write([]byte(`{"status":0,"request":"CAPCHA_NOT_READY"}`))
			return
		}
		w.Write([]byte(`{"status":1,"request":"tok-abcdef"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	token, err := Solve(context.Background(), client, "site-key", "https://portal.example.com",
		WithSolveInterval(time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, "tok-abcdef", token)
	assert.Equal(t, int32(3), polls.Load())
}

func TestSolve_BudgetExhausted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in.php" {
			w.Write([]byte(`{"status":1,"request":"job-7"}`))
			return
		}
		w.Write([]byte(`{"status":0,"request":"CAPCHA_NOT_READY"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := Solve(context.Background(), client, "site-key", "https://portal.example.com",
		WithSolveInterval(time.Millisecond), WithMaxPolls(5))

	require.ErrorIs(t, err, ErrChallengeTimeout)
	assert.Contains(t, err.Error(), "not solved after 5 polls")
}

func TestSolve_SolverErrorAborts(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in.php" {
			w.Write([]byte(`{"status":1,"request":"job-7"}`))
			return
		}
		polls.Add(1)
		w.Write([]byte(`{"status":0,"request":"ERROR_CAPTCHA_UNSOLVABLE"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := Solve(context.Background(), client, "site-key", "https://portal.example.com",
		WithSolveInterval(time.Millisecond), WithMaxPolls(10))

	require.Error(t, err)
	assert.Equal(t, int32(1), polls.Load())
}
