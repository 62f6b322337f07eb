package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateClampsNegatives(t *testing.T) {
	main := BranchInventory{OnHand: -4, IsStocked: false}
	merged := []BranchInventory{
		{OnHand: 3, IsStocked: false},
		{OnHand: -10, IsStocked: true},
		{OnHand: 2},
	}

	require.Equal(t, AggregatedStock{OnHand: 5, IsStocked: true}, Aggregate(main, merged))
	require.Equal(t, AggregatedStock{OnHand: 0}, Aggregate(main, nil))
}

func TestAggregateIsOrderInsensitive(t *testing.T) {
	main := BranchInventory{OnHand: 1, IsStocked: true}
	rows := []BranchInventory{{OnHand: 4}, {OnHand: -2}, {OnHand: 7, IsStocked: true}, {OnHand: 0}}
	want := Aggregate(main, rows)

	reversed := []BranchInventory{rows[3], rows[2], rows[1], rows[0]}
	require.Equal(t, want, Aggregate(main, reversed))

	split := Aggregate(main, rows[:2])
	rest := Aggregate(BranchInventory{OnHand: split.OnHand, IsStocked: split.IsStocked}, rows[2:])
	require.Equal(t, want, rest)
}

func TestAggregatorLoadsMergedRows(t *testing.T) {
	reader := &memoryReader{stock: []BranchStock{
		stockAt(1, 20, 5, 3, "A"),
		stockAt(2, 21, 5, -6, "B"),
		stockAt(3, 22, 5, 9, "C"),
		stockAt(4, 20, 6, 100, "A"),
	}}
	agg := NewAggregator(reader)

	got, err := agg.Aggregate(context.Background(), BranchInventory{OnHand: 2}, []MergedRelation{
		{ID: 1, SubBranchID: 20},
		{ID: 2, SubBranchID: 21},
	}, 5)

	require.NoError(t, err)
	require.Equal(t, AggregatedStock{OnHand: 5, IsStocked: true}, got)
}

func TestAggregatorSkipsReaderWithoutMerged(t *testing.T) {
	agg := NewAggregator(&memoryReader{stockErr: errors.New("unused")})

	got, err := agg.Aggregate(context.Background(), BranchInventory{OnHand: 2, IsStocked: true}, nil, 5)

	require.NoError(t, err)
	require.Equal(t, AggregatedStock{OnHand: 2, IsStocked: true}, got)
}

func TestAggregatorPropagatesReaderError(t *testing.T) {
	boom := errors.New("db down")
	agg := NewAggregator(&memoryReader{stockErr: boom})

	_, err := agg.Aggregate(context.Background(), BranchInventory{}, []MergedRelation{{SubBranchID: 20}}, 5)

	require.ErrorIs(t, err, boom)
}
