package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/picmap/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_NoAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestWaitForReady_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_TimeoutKeepsLastError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	refused := errors.New("connection refused")
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(refused)).
		AnyTimes()

	s := NewStoreForTest(c)
	err := s.WaitForReady(context.Background(), 350*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if !errors.Is(err, refused) {
		t.Errorf("expected last ping error, got %v", err)
	}
}

// --- hash.go tests ---

func TestHGetAllMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"12": mock.RedisString("France"),
			})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
		})

	s := NewStoreForTest(c)
	results, err := s.HGetAllMulti(context.Background(), []string{"picmap:vocab:countries", "picmap:vocab:genders"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0]["12"] != "France" || len(results[1]) != 0 {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestHGetAllMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	results, err := s.HGetAllMulti(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil, got %v", results)
	}
}

func TestHGetAllMulti_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	s := NewStoreForTest(c)
	_, err := s.HGetAllMulti(context.Background(), []string{"picmap:vocab:roles", "picmap:vocab:genders"})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected db.Error, got %v", err)
	}
	if dbErr.Key != "picmap:vocab:genders" {
		t.Errorf("expected failing key, got %q", dbErr.Key)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped DeadlineExceeded, got %v", err)
	}
}

func TestReplaceHashes_Transaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent [][]string
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			out := make([]rueidis.RedisResult, len(cmds))
			for i, cmd := range cmds {
				sent = append(sent, cmd.Commands())
				out[i] = mock.Result(mock.RedisString("QUEUED"))
			}
			out[len(out)-1] = mock.Result(mock.RedisArray(mock.RedisInt64(1), mock.RedisInt64(1), mock.RedisInt64(1)))
			return out
		})

	s := NewStoreForTest(c)
	err := s.ReplaceHashes(context.Background(), []db.Hash{
		{Key: "picmap:vocab:countries", Fields: map[string]string{"12": "France"}},
		{Key: "picmap:vocab:formats"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, cmd := range sent {
		names = append(names, cmd[0])
	}
	if got := strings.Join(names, " "); got != "MULTI DEL HSET DEL EXEC" {
		t.Errorf("commands = %q", got)
	}
	if sent[2][1] != "picmap:vocab:countries" || sent[2][2] != "12" || sent[2][3] != "France" {
		t.Errorf("hset = %v", sent[2])
	}
	if sent[3][1] != "picmap:vocab:formats" {
		t.Errorf("del = %v", sent[3])
	}
}

func TestReplaceHashes_Aborted(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisNil()),
		})

	s := NewStoreForTest(c)
	err := s.ReplaceHashes(context.Background(), []db.Hash{{Key: "picmap:vocab:roles"}})
	if !errors.Is(err, db.ErrTxAborted) {
		t.Errorf("expected ErrTxAborted, got %v", err)
	}
}

func TestReplaceHashes_QueueError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.ErrorResult(errors.New("READONLY You can't write against a read only replica")),
			mock.Result(mock.RedisNil()),
		})

	s := NewStoreForTest(c)
	err := s.ReplaceHashes(context.Background(), []db.Hash{{Key: "picmap:vocab:roles"}})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected db.Error, got %v", err)
	}
	if dbErr.Op != db.OpReplace {
		t.Errorf("expected op %s, got %s", db.OpReplace, dbErr.Op)
	}
	if errors.Is(err, db.ErrTxAborted) {
		t.Error("queue failure must not be reported as an aborted transaction")
	}
}

func TestReplaceHashes_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.ReplaceHashes(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "picmap:basedata")).
		Return(mock.Result(mock.RedisBlobString("[[1,2,0,0,0,0]]")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "picmap:basedata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "[[1,2,0,0,0,0]]" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "picmap:basedata")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "picmap:basedata")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "picmap:basedata")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "picmap:basedata")
	if errors.Is(err, db.ErrKeyNotFound) {
		t.Error("should not be ErrKeyNotFound for network errors")
	}
	if err == nil || !strings.Contains(err.Error(), "GET picmap:basedata") {
		t.Errorf("expected op and key in error, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "picmap:basedata", "[]")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "picmap:basedata", []byte("[]")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(errors.New("READONLY You can't write against a read only replica")))

	s := NewStoreForTest(c)
	err := s.Set(context.Background(), "picmap:basedata", []byte("[]"))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected db.Error, got %v", err)
	}
	if dbErr.Op != db.OpSet || dbErr.Key != "picmap:basedata" {
		t.Errorf("unexpected error fields: %+v", dbErr)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "picmap:search_cache:ab", "{}", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "picmap:search_cache:ab", []byte("{}"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeletePrefix_WalksCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("SCAN", "0", "MATCH", "picmap:search_cache:*", "COUNT", "500")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisBlobString("17"),
				mock.RedisArray(mock.RedisBlobString("picmap:search_cache:a"), mock.RedisBlobString("picmap:search_cache:b")),
			))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("UNLINK", "picmap:search_cache:a", "picmap:search_cache:b")).
			Return(mock.Result(mock.RedisInt64(2))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("SCAN", "17", "MATCH", "picmap:search_cache:*", "COUNT", "500")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisBlobString("0"),
				mock.RedisArray(),
			))),
	)

	s := NewStoreForTest(c)
	n, err := s.DeletePrefix(context.Background(), "picmap:search_cache:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
}

func TestDeletePrefix_ScanError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(context.Canceled))

	s := NewStoreForTest(c)
	_, err := s.DeletePrefix(context.Background(), "picmap:search_cache:")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpScan {
		t.Errorf("expected SCAN db.Error, got %v", err)
	}
}

func TestDeletePrefix_EmptyPrefix(t *testing.T) {
	s := NewStoreForTest(nil)
	if _, err := s.DeletePrefix(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
}
