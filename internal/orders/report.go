package orders

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"flowershop/internal/domain"
)

type TopFlower struct {
	FlowerID     domain.FlowerID `json:"flower_id"`
	FlowerName   string          `json:"flower_name"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type DailySales struct {
	Date        string          `json:"date"`
	OrdersCount int             `json:"orders_count"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type SalesReport struct {
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalOrders    int             `json:"total_orders"`
	TotalItemsSold int             `json:"total_items_sold"`
	TopFlowers     []TopFlower     `json:"top_flowers"`
	DailySales     []DailySales    `json:"daily_sales"`
}

// BuildSalesReport folds delivered-order rows into the aggregate view: total
// revenue and counts, top flowers by revenue (descending, truncated to topN)
// and per-calendar-day buckets in ascending date order.
func BuildSalesReport(rows []SalesRow, topN int) SalesReport {
	type orderInfo struct {
		total decimal.Decimal
		day   string
	}
	orders := make(map[domain.OrderID]orderInfo)

	type flowerAgg struct {
		name     string
		quantity int
		revenue  decimal.Decimal
	}
	flowers := make(map[domain.FlowerID]*flowerAgg)

	totalItems := 0
	for _, row := range rows {
		orders[row.OrderID] = orderInfo{
			total: row.TotalAmount,
			day:   row.CreatedAt.UTC().Format(time.DateOnly),
		}
		totalItems += row.Quantity

		agg, ok := flowers[row.FlowerID]
		if !ok {
			agg = &flowerAgg{name: row.FlowerName, revenue: decimal.Zero}
			flowers[row.FlowerID] = agg
		}
		agg.quantity += row.Quantity
		agg.revenue = agg.revenue.Add(row.Price.Mul(decimal.NewFromInt(int64(row.Quantity))))
	}

	totalRevenue := decimal.Zero
	daily := make(map[string]*DailySales)
	for _, info := range orders {
		totalRevenue = totalRevenue.Add(info.total)

		bucket, ok := daily[info.day]
		if !ok {
			bucket = &DailySales{Date: info.day, Revenue: decimal.Zero}
			daily[info.day] = bucket
		}
		bucket.OrdersCount++
		bucket.Revenue = bucket.Revenue.Add(info.total)
	}

	topFlowers := make([]TopFlower, 0, len(flowers))
	for id, agg := range flowers {
		topFlowers = append(topFlowers, TopFlower{
			FlowerID:     id,
			FlowerName:   agg.name,
			QuantitySold: agg.quantity,
			Revenue:      agg.revenue,
		})
	}
	sort.Slice(topFlowers, func(i, j int) bool {
		if !topFlowers[i].Revenue.Equal(topFlowers[j].Revenue) {
			return topFlowers[i].Revenue.GreaterThan(topFlowers[j].Revenue)
		}
		return topFlowers[i].FlowerName < topFlowers[j].FlowerName
	})
	if len(topFlowers) > topN {
		topFlowers = topFlowers[:topN]
	}

	dailySales := make([]DailySales, 0, len(daily))
	for _, bucket := range daily {
		dailySales = append(dailySales, *bucket)
	}
	sort.Slice(dailySales, func(i, j int) bool {
		return dailySales[i].Date < dailySales[j].Date
	})

	return SalesReport{
		TotalRevenue:   totalRevenue,
		TotalOrders:    len(orders),
		TotalItemsSold: totalItems,
		TopFlowers:     topFlowers,
		DailySales:     dailySales,
	}
}
