package domain

import (
	"fmt"
	"math"
)

// Money is an amount in minor currency units (cents).
type Money int64

func MoneyFromFloat(v float64) Money {
	return Money(math.Round(v * 100))
}

func (m Money) Float64() float64 { return float64(m) / 100 }

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// CostSettings carry the owner's monetary rates used by the cost objective.
type CostSettings struct {
	FuelCostPerKm        Money
	PersonnelCostPerHour Money
	CurrencyCode         string
}

// Estimate returns the money spent driving km kilometres over minutes of paid time.
func (c CostSettings) Estimate(km float64, minutes float64) Money {
	return MoneyFromFloat(km*c.FuelCostPerKm.Float64() + minutes/60*c.PersonnelCostPerHour.Float64())
}
