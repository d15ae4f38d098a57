package settings

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"apply-desk/internal/common/clock"
	apperrors "apply-desk/internal/common/errors"
	"apply-desk/internal/common/logger"
	"apply-desk/internal/keyspace"
	"apply-desk/internal/models"
	"apply-desk/internal/remotestore"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var syncNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newSQLMockSync(t *testing.T, ks keyspace.KeySpace) (*Sync, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logger.NewTestLogger(t)
	store := remotestore.New(db, log)
	return NewSync(store, ks, clock.NewFake(syncNow), log, "speed_apartment2", ""), mock
}

func TestPull_AppliesRemoteFields(t *testing.T) {
	ks := newMemKeySpace()
	s, mock := newSQLMockSync(t, ks)

	mock.ExpectQuery(`SELECT apartment_id, title, phones, emails, apartment_name, updated_at\s+FROM admin_settings`).
		WithArgs("speed_apartment2").
		WillReturnRows(sqlmock.NewRows([]string{"apartment_id", "title", "phones", "emails", "apartment_name", "updated_at"}).
			AddRow("speed_apartment2", "원격 제목", "{010-1111-2222}", `{a@x.kr,b@x.kr}`, "Blue 아파트", syncNow))

	res := s.Pull(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, PullApplied, res.Status)

	assert.Equal(t, "원격 제목", ks.data[keyspace.KeyTitle])
	assert.JSONEq(t, `["010-1111-2222"]`, ks.data[keyspace.KeyPhones])
	assert.JSONEq(t, `["a@x.kr","b@x.kr"]`, ks.data[keyspace.KeyEmails])
	assert.Equal(t, "Blue 아파트", ks.data[keyspace.KeyApartmentName])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPull_EmptyRemoteFieldsKeepLocal(t *testing.T) {
	ks := newMemKeySpace()
	ks.data[keyspace.KeyEmails] = `["local@x.kr"]`
	s, mock := newSQLMockSync(t, ks)

	mock.ExpectQuery(`FROM admin_settings`).
		WithArgs("speed_apartment2").
		WillReturnRows(sqlmock.NewRows([]string{"apartment_id", "title", "phones", "emails", "apartment_name", "updated_at"}).
			AddRow("speed_apartment2", "", "{}", "{}", nil, syncNow))

	res := s.Pull(context.Background())
	assert.Equal(t, PullApplied, res.Status)
	assert.Equal(t, `["local@x.kr"]`, ks.data[keyspace.KeyEmails])
	assert.NotContains(t, ks.data, keyspace.KeyTitle)
	assert.Equal(t, "Speed 아파트", ks.data[keyspace.KeyApartmentName])
}

func TestPull_NotFoundKeepsLocal(t *testing.T) {
	ks := newMemKeySpace()
	ks.data[keyspace.KeyApartmentName] = "Cached 아파트"
	s, mock := newSQLMockSync(t, ks)

	mock.ExpectQuery(`FROM admin_settings`).WillReturnError(sql.ErrNoRows)

	res := s.Pull(context.Background())
	assert.Equal(t, PullNotFound, res.Status)
	assert.NoError(t, res.Err)
	assert.Equal(t, "Cached 아파트", ks.data[keyspace.KeyApartmentName])
}

func TestPull_ErrorKeepsLocal(t *testing.T) {
	ks := newMemKeySpace()
	ks.data[keyspace.KeyTitle] = "로컬 제목"
	s, mock := newSQLMockSync(t, ks)

	mock.ExpectQuery(`FROM admin_settings`).WillReturnError(errors.New("connection refused"))

	res := s.Pull(context.Background())
	assert.Equal(t, PullFailed, res.Status)
	assert.True(t, apperrors.HasCode(res.Err, apperrors.ErrCodeSettingsSyncFailed))
	assert.Equal(t, "로컬 제목", ks.data[keyspace.KeyTitle])
}

func TestPush_UpsertsWithNow(t *testing.T) {
	s, mock := newSQLMockSync(t, newMemKeySpace())

	mock.ExpectExec(`INSERT INTO admin_settings .* ON CONFLICT \(apartment_id\) DO UPDATE`).
		WithArgs("speed_apartment2", "제목", sqlmock.AnyArg(), sqlmock.AnyArg(), syncNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Push(context.Background(), models.AdminSettings{
		ApartmentID: "ignored",
		Title:       "제목",
		Emails:      models.RecipientList{"a@x.kr"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPush_Failure(t *testing.T) {
	s, mock := newSQLMockSync(t, newMemKeySpace())
	mock.ExpectExec(`INSERT INTO admin_settings`).WillReturnError(errors.New("timeout"))

	err := s.Push(context.Background(), models.AdminSettings{Title: "t"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSettingsSyncFailed))
}

func TestSync_WithRedisKeySpaceAndStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ks := keyspace.NewRedis(rdb, "apt2")

	s, mock := newSQLMockSync(t, ks)
	mock.ExpectQuery(`FROM admin_settings`).
		WillReturnRows(sqlmock.NewRows([]string{"apartment_id", "title", "phones", "emails", "apartment_name", "updated_at"}).
			AddRow("speed_apartment2", "", "{}", `{ops@x.kr}`, "Speed 아파트", syncNow))
	require.Equal(t, PullApplied, s.Pull(context.Background()).Status)

	store := newTestStore(t, ks, nil)
	emails, err := store.LoadEmails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RecipientList{"ops@x.kr"}, emails)

	raw, err := mr.Get("apt2:" + keyspace.KeyEmails)
	require.NoError(t, err)
	assert.JSONEq(t, `["ops@x.kr"]`, raw)
}
