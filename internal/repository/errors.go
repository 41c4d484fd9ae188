// Package repository implements the service stores on MySQL.  Every query
// goes through DBTX so the same repositories work on the pool and inside a
// transaction.  Driver errors are classified into apperr kinds here:
// sql.ErrNoRows becomes the matching not-found kind and duplicate keys
// (MySQL 1062) become a conflict.
package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/identity-service/internal/apperr"
)

const errDuplicateEntry = 1062

// isDuplicate reports whether err is a unique-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// classify maps a driver error.  notFound is used for sql.ErrNoRows and
// conflict for duplicate keys; either may be nil.
func classify(err error, notFound, conflict *apperr.Error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, sql.ErrNoRows):
		return notFound
	case conflict != nil && isDuplicate(err):
		return apperr.Wrap(conflict, err)
	}
	return apperr.Database(err)
}

// expectRows turns "no row changed" into notFound.
func expectRows(res sql.Result, notFound *apperr.Error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Database(err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
