package repositories

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// translate maps a driver "no rows" error onto notFound and wraps everything
// else with the failing operation name.
func translate(err error, notFound error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return pkgerrors.Wrap(err, op)
}

func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, op)
}

// conflict maps a unique-index violation onto duplicate and wraps everything
// else. It relies on the connection being opened with TranslateError.
func conflict(err error, duplicate error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return duplicate
	}
	return pkgerrors.Wrap(err, op)
}
