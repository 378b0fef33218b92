package periodlock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sconzo/lalur-sub001/internal/platform/db"
)

func TestRepositoryWithTxRequiresPool(t *testing.T) {
	called := false
	fn := func(context.Context, TxRepository) error {
		called = true
		return nil
	}

	var nilRepo *Repository
	assert.ErrorIs(t, nilRepo.WithTx(context.Background(), fn), db.ErrNilPool)
	assert.ErrorIs(t, NewRepository(nil).WithTx(context.Background(), fn), db.ErrNilPool)
	assert.False(t, called)
}
