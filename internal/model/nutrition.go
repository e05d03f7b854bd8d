// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// User identifies an authenticated account.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Profile holds the body metrics the server uses to compute daily needs.
type Profile struct {
	Username      string  `json:"username"`
	Age           int     `json:"age"`
	Sex           string  `json:"sex"`
	HeightCm      float64 `json:"height_cm"`
	WeightKg      float64 `json:"weight_kg"`
	ActivityLevel string  `json:"activity_level"`
	Goal          string  `json:"goal"`
}

// FoodEntry is one logged intake row.
type FoodEntry struct {
	ID         int     `json:"id"`
	FoodID     int     `json:"food_id"`
	FoodName   string  `json:"food_name"`
	Quantity   float64 `json:"quantity"`
	IntakeDate string  `json:"intake_date"`
	MealType   string  `json:"meal_type,omitempty"`
}

// DailySummary is the server-computed nutrient total for one day.
type DailySummary struct {
	Date     string  `json:"date"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// DailyNeeds is the server-computed target intake for the current profile.
type DailyNeeds struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
}

// DayHistory is one day in the rolling history report. Nutrient fields are
// pointers because days with no intake logged come back as null.
type DayHistory struct {
	Date     string     `json:"date"`
	Calories *float64   `json:"calories"`
	Protein  *float64   `json:"protein"`
	Carbs    *float64   `json:"carbs"`
	Fat      *float64   `json:"fat"`
	Needs    DailyNeeds `json:"daily_needs"`
}

// HistoryReport is the payload of the rolling history endpoint.
type HistoryReport struct {
	History []DayHistory `json:"history"`
	Needs   DailyNeeds   `json:"daily_needs"`
}
