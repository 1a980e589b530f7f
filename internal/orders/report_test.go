package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowershop/internal/domain"
)

func salesRow(orderID domain.OrderID, total string, day time.Time, flowerID domain.FlowerID, name string, qty int, price string) SalesRow {
	return SalesRow{
		OrderID:     orderID,
		TotalAmount: decimal.RequireFromString(total),
		CreatedAt:   day,
		FlowerID:    flowerID,
		FlowerName:  name,
		Quantity:    qty,
		Price:       decimal.RequireFromString(price),
	}
}

func TestBuildSalesReportEmpty(t *testing.T) {
	report := BuildSalesReport(nil, 10)

	assert.True(t, report.TotalRevenue.IsZero())
	assert.Zero(t, report.TotalOrders)
	assert.Zero(t, report.TotalItemsSold)
	assert.Empty(t, report.TopFlowers)
	assert.Empty(t, report.DailySales)
}

func TestBuildSalesReportAggregates(t *testing.T) {
	aug1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	aug2 := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)

	rows := []SalesRow{
		// Order o1 spans two item rows and must be counted once.
		salesRow("o1", "70.00", aug1, "rose", "Red Rose", 2, "20.00"),
		salesRow("o1", "70.00", aug1, "tulip", "Tulip", 6, "5.00"),
		salesRow("o2", "40.00", aug2, "rose", "Red Rose", 2, "20.00"),
	}

	report := BuildSalesReport(rows, 10)

	assert.Equal(t, 2, report.TotalOrders)
	assert.Equal(t, 10, report.TotalItemsSold)
	assert.True(t, report.TotalRevenue.Equal(decimal.RequireFromString("110.00")), report.TotalRevenue.String())

	require.Len(t, report.TopFlowers, 2)
	assert.Equal(t, "Red Rose", report.TopFlowers[0].FlowerName)
	assert.Equal(t, 4, report.TopFlowers[0].QuantitySold)
	assert.True(t, report.TopFlowers[0].Revenue.Equal(decimal.RequireFromString("80.00")))
	assert.Equal(t, "Tulip", report.TopFlowers[1].FlowerName)

	require.Len(t, report.DailySales, 2)
	assert.Equal(t, "2026-08-01", report.DailySales[0].Date)
	assert.Equal(t, 1, report.DailySales[0].OrdersCount)
	assert.True(t, report.DailySales[0].Revenue.Equal(decimal.RequireFromString("70.00")))
	assert.Equal(t, "2026-08-02", report.DailySales[1].Date)
}

func TestBuildSalesReportTruncatesTopFlowers(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := []SalesRow{
		salesRow("o1", "60.00", day, "a", "Aster", 1, "10.00"),
		salesRow("o1", "60.00", day, "b", "Begonia", 1, "20.00"),
		salesRow("o1", "60.00", day, "c", "Carnation", 1, "30.00"),
	}

	report := BuildSalesReport(rows, 2)

	require.Len(t, report.TopFlowers, 2)
	assert.Equal(t, "Carnation", report.TopFlowers[0].FlowerName)
	assert.Equal(t, "Begonia", report.TopFlowers[1].FlowerName)
}

func TestBuildSalesReportTiesBreakByName(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := []SalesRow{
		salesRow("o1", "20.00", day, "z", "Zinnia", 1, "10.00"),
		salesRow("o1", "20.00", day, "a", "Aster", 1, "10.00"),
	}

	report := BuildSalesReport(rows, 10)

	require.Len(t, report.TopFlowers, 2)
	assert.Equal(t, "Aster", report.TopFlowers[0].FlowerName)
	assert.Equal(t, "Zinnia", report.TopFlowers[1].FlowerName)
}
