package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckrealms/lanebattle/internal/battle"
)

const sample = `owner,faction,rank,council,tier,id
alice,Hearts,A,North,0,
alice,Hearts,10,,2,2b7f4f7e-3d55-4c3c-9d0e-1d4a5b6c7d8e
bob,spades,q,East Council,6
carol,Stars,A,,0
dave,Clubs,K,,9
erin,Clubs,K
frank,Clubs,K,,0,not-a-uuid
,Clubs,K,,0
`

func TestParseRecords(t *testing.T) {
	pools, skipped, err := parseRecords(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, pools["alice"], 2)
	assert.Equal(t, battle.RankAce, pools["alice"][0].Rank)
	assert.Equal(t, battle.CouncilNorth, pools["alice"][0].Council)
	assert.NotEmpty(t, pools["alice"][0].ID)
	assert.Equal(t, "2b7f4f7e-3d55-4c3c-9d0e-1d4a5b6c7d8e", pools["alice"][1].ID)
	assert.Equal(t, 2, pools["alice"][1].Tier)

	require.Len(t, pools["bob"], 1)
	assert.Equal(t, battle.FactionSpades, pools["bob"][0].Faction)
	assert.Equal(t, battle.RankQueen, pools["bob"][0].Rank)
	assert.Equal(t, battle.CouncilEast, pools["bob"][0].Council)

	assert.Len(t, skipped, 5)
	assert.Len(t, pools, 2)
}

func TestParseRecordsHeaderOnly(t *testing.T) {
	pools, skipped, err := parseRecords(strings.NewReader("owner,faction,rank,council,tier\n"))
	require.NoError(t, err)
	assert.Empty(t, pools)
	assert.Empty(t, skipped)
}
