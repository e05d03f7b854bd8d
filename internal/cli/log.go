// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mdelaney/nutri-tui/internal/model"
)

// dateOrToday returns the --date value or today in service format.
func dateOrToday(args *Args) string {
	if args.Date != "" {
		return args.Date
	}
	return time.Now().Format("2006-01-02")
}

func requireLogin(deps *Deps) error {
	if !deps.Session.Authenticated() {
		return fmt.Errorf("not logged in, run `nutri login` first")
	}
	return nil
}

// RunLog dispatches the food-log subcommands: add, list, del.
func RunLog(ctx context.Context, deps *Deps, args *Args) error {
	if err := requireLogin(deps); err != nil {
		return err
	}

	switch args.Subcommand {
	case "add":
		return runLogAdd(ctx, deps, args)
	case "del", "delete", "rm":
		return runLogDelete(ctx, deps, args)
	case "list", "":
		return runLogList(ctx, deps, args)
	default:
		return fmt.Errorf("unknown log subcommand %q (add, list, del)", args.Subcommand)
	}
}

func runLogAdd(ctx context.Context, deps *Deps, args *Args) error {
	foodID, err := strconv.Atoi(args.Options["food"])
	if err != nil {
		return fmt.Errorf("--food must be a food id")
	}
	qty := 1.0
	if v, ok := args.Options["qty"]; ok {
		qty, err = strconv.ParseFloat(v, 64)
		if err != nil || qty <= 0 {
			return fmt.Errorf("--qty must be a positive number")
		}
	}

	entry := model.FoodEntry{
		FoodID:     foodID,
		Quantity:   qty,
		IntakeDate: dateOrToday(args),
		MealType:   args.Options["meal"],
	}
	if err := deps.Client.InsertLog(ctx, entry); err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	fmt.Println(successStyle.Render("Entry logged."))
	return nil
}

func runLogDelete(ctx context.Context, deps *Deps, args *Args) error {
	if len(args.Raw) < 2 {
		return fmt.Errorf("usage: nutri log del <entry-id>")
	}
	id, err := strconv.Atoi(args.Raw[1])
	if err != nil {
		return fmt.Errorf("entry id must be a number")
	}
	if err := deps.Client.DeleteLog(ctx, id); err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	fmt.Println(successStyle.Render("Entry deleted."))
	return nil
}

func runLogList(ctx context.Context, deps *Deps, args *Args) error {
	date := dateOrToday(args)
	entries, err := deps.Client.RetrieveLog(ctx, date)
	if err != nil {
		return fmt.Errorf("retrieve log: %w", err)
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Println(mutedStyle.Render("No entries for " + date + "."))
		return nil
	}

	fmt.Println(labelStyle.Render("Intake for " + date))
	for _, e := range entries {
		meal := e.MealType
		if meal == "" {
			meal = "-"
		}
		fmt.Printf("  %s  %s  %s\n",
			mutedStyle.Render(fmt.Sprintf("#%-4d", e.ID)),
			valueStyle.Render(fmt.Sprintf("%-24s", e.FoodName)),
			labelStyle.Render(fmt.Sprintf("x%.2g (%s)", e.Quantity, meal)))
	}
	return nil
}

// RunSummary prints the nutrient totals for one day.
func RunSummary(ctx context.Context, deps *Deps, args *Args) error {
	if err := requireLogin(deps); err != nil {
		return err
	}
	date := dateOrToday(args)
	summary, err := deps.Client.DailySummary(ctx, date)
	if err != nil {
		return fmt.Errorf("daily summary: %w", err)
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(summary)
	}
	fmt.Println(labelStyle.Render("Totals for " + date))
	printMacros(summary.Calories, summary.Protein, summary.Carbs, summary.Fat)
	return nil
}

// RunNeeds prints the computed daily targets.
func RunNeeds(ctx context.Context, deps *Deps, args *Args) error {
	if err := requireLogin(deps); err != nil {
		return err
	}
	needs, err := deps.Client.DailyNeeds(ctx)
	if err != nil {
		return fmt.Errorf("daily needs: %w", err)
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(needs)
	}
	fmt.Println(labelStyle.Render("Daily targets"))
	printMacros(needs.Calories, needs.ProteinG, needs.CarbsG, needs.FatG)
	return nil
}

// RunWeek prints the rolling 7-day report against the daily targets.
func RunWeek(ctx context.Context, deps *Deps, args *Args) error {
	if err := requireLogin(deps); err != nil {
		return err
	}
	report, err := deps.Client.History7Days(ctx)
	if err != nil {
		return fmt.Errorf("weekly history: %w", err)
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	fmt.Println(labelStyle.Render("Last 7 days") +
		mutedStyle.Render(fmt.Sprintf("  (target %.0f kcal)", report.Needs.Calories)))
	for _, day := range report.History {
		if day.Calories == nil {
			fmt.Printf("  %s  %s\n", day.Date, mutedStyle.Render("no entries"))
			continue
		}
		line := fmt.Sprintf("%6.0f kcal  %5.1fg protein  %5.1fg carbs  %5.1fg fat",
			*day.Calories, deref(day.Protein), deref(day.Carbs), deref(day.Fat))
		style := successStyle
		if report.Needs.Calories > 0 && *day.Calories > report.Needs.Calories {
			style = warningStyle
		}
		fmt.Printf("  %s  %s\n", day.Date, style.Render(line))
	}
	return nil
}

func printMacros(calories, protein, carbs, fat float64) {
	fmt.Printf("  %s %s\n", labelStyle.Render("calories:"), valueStyle.Render(fmt.Sprintf("%.0f kcal", calories)))
	fmt.Printf("  %s %s\n", labelStyle.Render("protein: "), valueStyle.Render(fmt.Sprintf("%.1f g", protein)))
	fmt.Printf("  %s %s\n", labelStyle.Render("carbs:   "), valueStyle.Render(fmt.Sprintf("%.1f g", carbs)))
	fmt.Printf("  %s %s\n", labelStyle.Render("fat:     "), valueStyle.Render(fmt.Sprintf("%.1f g", fat)))
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
