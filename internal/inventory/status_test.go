package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/catalog/internal/locale"
	"github.com/odyssey-erp/catalog/internal/settings"
)

var (
	english = locale.SiteLocale{ID: 1, Code: locale.CodeEnglish}
	french  = locale.SiteLocale{ID: 2, Code: locale.CodeFrench}
)

func effective(protected, maxVisible int, show bool) settings.Effective {
	return settings.Effective{
		ProtectedInventory:   protected,
		MaximumVisible:       maxVisible,
		ShowValue:            show,
		SpecialOrderString:   "Special order",
		SpecialOrderStringEN: "Special order",
		SpecialOrderStringFR: "Commande spéciale",
	}
}

func TestClassifyInStockExact(t *testing.T) {
	st := Classify(AggregatedStock{OnHand: 5, IsStocked: true}, effective(2, 10, false), english)

	require.Equal(t, StateInStockExact, st.State)
	require.Equal(t, "In Stock 5", st.Text)
	require.Equal(t, "In Stock 5", st.TextEN)
	require.Equal(t, "En Stock Seulement via 5", st.TextFR)
	require.True(t, st.InStock)
	require.NotNil(t, st.Unit)
	require.Equal(t, 3, *st.Unit)
}

func TestClassifyExactUnitNotClamped(t *testing.T) {
	st := Classify(AggregatedStock{OnHand: 1, IsStocked: true}, effective(4, 10, true), french)

	require.Equal(t, StateInStockExact, st.State)
	require.Equal(t, -3, *st.Unit)
	require.Equal(t, "En Stock Seulement via 1", st.Text)
	require.Equal(t, "En stock", st.Origin)
}

func TestClassifyNotStocked(t *testing.T) {
	for _, onHand := range []int{-4, 0, 12} {
		st := Classify(AggregatedStock{OnHand: onHand, IsStocked: false}, effective(0, 0, true), french)
		require.Equal(t, StateSpecialOrder, st.State)
		require.True(t, st.SpecialOrderString)
		require.False(t, st.InStock)
		require.False(t, st.WaitingOnStock)
		require.Nil(t, st.Unit)
		require.Equal(t, "Special order", st.Text)
		require.Equal(t, "Commande spéciale", st.TextFR)
		require.Equal(t, "Commande spéciale", st.OriginFR)
	}
}

func TestClassifyTieredWaitingOnStock(t *testing.T) {
	st := Classify(AggregatedStock{OnHand: -3, IsStocked: true}, effective(2, 10, true), english)

	require.Equal(t, StateWaitingOnStock, st.State)
	require.Equal(t, "Waiting On Stock", st.Text)
	require.Equal(t, "En attente de stock", st.TextFR)
	require.False(t, st.InStock)
	require.True(t, st.WaitingOnStock)
	require.Nil(t, st.Unit)
}

func TestClassifyHiddenCount(t *testing.T) {
	st := Classify(AggregatedStock{OnHand: 0, IsStocked: true}, effective(0, 10, false), english)
	require.Equal(t, StateWaitingOnStock, st.State)

	st = Classify(AggregatedStock{OnHand: 0, IsStocked: true}, effective(-1, 10, false), french)
	require.Equal(t, StateInStockHidden, st.State)
	require.Equal(t, "En Stock Seulement via", st.Text)
	require.Equal(t, "In Stock", st.TextEN)
	require.True(t, st.InStock)
	require.Nil(t, st.Unit)
}

func TestClassifyTieredExactAndCapped(t *testing.T) {
	st := Classify(AggregatedStock{OnHand: 0, IsStocked: true}, effective(-3, 5, true), english)
	require.Equal(t, StateInStockTiered, st.State)
	require.Equal(t, "In Stock 3", st.Text)
	require.Equal(t, 3, *st.Unit)

	st = Classify(AggregatedStock{OnHand: 0, IsStocked: true}, effective(-20, -1, true), english)
	require.Equal(t, StateInStockCapped, st.State)
	require.Equal(t, "In Stock -1+", st.Text)
	require.Equal(t, 20, *st.Unit)
}

func TestClassifyTieredGapFallsBackToUnknown(t *testing.T) {
	st := Classify(AggregatedStock{OnHand: 0, IsStocked: true}, effective(-5, 2, true), english)

	require.Equal(t, Status{State: StateUnknown}, st)
}

func TestClassifyIsTotal(t *testing.T) {
	triples := [][3]int{{0, 0, 0}, {2, 10, 0}, {-5, 2, 0}, {-20, -1, 0}, {5, -5, 0}, {-1, 0, 0}}
	for _, stocked := range []bool{true, false} {
		for _, onHand := range []int{-7, 0, 9} {
			for _, show := range []bool{true, false} {
				for _, tr := range triples {
					for _, loc := range []locale.SiteLocale{english, french} {
						st := Classify(AggregatedStock{OnHand: onHand, IsStocked: stocked}, effective(tr[0], tr[1], show), loc)
						require.NotEmpty(t, st.State)
						if !stocked {
							require.Equal(t, StateSpecialOrder, st.State)
						}
						if st.InStock {
							require.False(t, st.WaitingOnStock)
						}
					}
				}
			}
		}
	}
}
