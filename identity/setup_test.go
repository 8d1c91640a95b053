package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/padraicbc/riderapi/config"
	"github.com/padraicbc/riderapi/models"
)

func TestSetupAppliesConfig(t *testing.T) {
	f := newFixture(t)
	club := f.club("Velo Vasa")
	id := f.rider(models.Rider{Firstname: "Ola", Lastname: "Ek", LicenseID: strp("10000000001"), ClubID: &club})

	r, err := Setup(f.db, &config.Config{NameFolds: "\u00e5=a", ClubDesignators: []string{"velo"}}, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"\u00e5=a"}, r.norm.Folds())

	res, err := r.FindCandidate(f.ctx, IncomingRecord{Firstname: "Ola", Lastname: "Ek", ClubName: "Vasa Velo"})
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, id, *res.RiderID)
	assert.Equal(t, "name_club", res.Strategy)

	_, err = Setup(f.db, &config.Config{NameFolds: "broken"}, zaptest.NewLogger(t), nil)
	assert.Error(t, err)
}
