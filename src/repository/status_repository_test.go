package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"firecontrol/src/externalmodel"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStatusRepositoryFindByMission(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &StatusRepository{db: mockDB}

	t.Run("newest record wins", func(t *testing.T) {
		createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"id", "ticket", "mission_id", "status", "created_at"}).
			AddRow(12, 9001, "m-1", externalmodel.StatusFilled, createdAt)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "agent_execution_status" WHERE mission_id = $1 ORDER BY id DESC,"agent_execution_status"."id" LIMIT $2`)).
			WithArgs("m-1", 1).
			WillReturnRows(rows)

		record, err := repo.FindByMission(context.Background(), "m-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if record == nil || record.Status != externalmodel.StatusFilled || record.Ticket != 9001 {
			t.Fatalf("unexpected record: %+v", record)
		}
	})

	t.Run("no record yields nil, nil", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "agent_execution_status" WHERE mission_id = $1 ORDER BY id DESC,"agent_execution_status"."id" LIMIT $2`)).
			WithArgs("m-none", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		record, err := repo.FindByMission(context.Background(), "m-none")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if record != nil {
			t.Fatalf("expected nil record, got %+v", record)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestStatusRepositoryLatestBalance(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &StatusRepository{db: mockDB}

	t.Run("newest snapshot wins", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "agent_id", "balance"}).
			AddRow(31, "agent-1", 900.0)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "agent_balance_snapshots" WHERE agent_id = $1 ORDER BY id DESC,"agent_balance_snapshots"."id" LIMIT $2`)).
			WithArgs("agent-1", 1).
			WillReturnRows(rows)

		balance, err := repo.LatestBalance(context.Background(), "agent-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if balance == nil || *balance != 900.0 {
			t.Fatalf("unexpected balance: %v", balance)
		}
	})

	t.Run("no snapshot yields nil, nil", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "agent_balance_snapshots" WHERE agent_id = $1 ORDER BY id DESC,"agent_balance_snapshots"."id" LIMIT $2`)).
			WithArgs("agent-new", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		balance, err := repo.LatestBalance(context.Background(), "agent-new")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if balance != nil {
			t.Fatalf("expected nil balance for an agent with no snapshots, got %v", *balance)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestStatusRepositoryBalanceDelta(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &StatusRepository{db: mockDB}

	t.Run("difference of the two newest snapshots", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "agent_id", "balance"}).
			AddRow(20, "agent-1", 900.0).
			AddRow(19, "agent-1", 1000.0)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "agent_balance_snapshots" WHERE agent_id = $1 ORDER BY id DESC LIMIT $2`)).
			WithArgs("agent-1", 2).
			WillReturnRows(rows)

		delta, err := repo.BalanceDelta(context.Background(), "agent-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if delta != -100.0 {
			t.Fatalf("expected delta -100, got %f", delta)
		}
	})

	t.Run("fewer than two snapshots yields zero", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "agent_id", "balance"}).
			AddRow(20, "agent-2", 900.0)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "agent_balance_snapshots" WHERE agent_id = $1 ORDER BY id DESC LIMIT $2`)).
			WithArgs("agent-2", 2).
			WillReturnRows(rows)

		delta, err := repo.BalanceDelta(context.Background(), "agent-2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if delta != 0 {
			t.Fatalf("expected zero delta, got %f", delta)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
