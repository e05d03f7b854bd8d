// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/mdelaney/nutri-tui/internal/model"
)

// RunProfile shows or edits the body profile.
func RunProfile(ctx context.Context, deps *Deps, args *Args) error {
	if err := requireLogin(deps); err != nil {
		return err
	}

	switch args.Subcommand {
	case "edit":
		return runProfileEdit(ctx, deps, args)
	case "show", "":
		return runProfileShow(ctx, deps, args)
	default:
		return fmt.Errorf("unknown profile subcommand %q (show, edit)", args.Subcommand)
	}
}

func runProfileShow(ctx context.Context, deps *Deps, args *Args) error {
	profile, err := deps.Client.MyProfile(ctx)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(profile)
	}

	rows := []struct{ label, value string }{
		{"username:", profile.Username},
		{"age:     ", strconv.Itoa(profile.Age)},
		{"sex:     ", profile.Sex},
		{"height:  ", fmt.Sprintf("%.1f cm", profile.HeightCm)},
		{"weight:  ", fmt.Sprintf("%.1f kg", profile.WeightKg)},
		{"activity:", profile.ActivityLevel},
		{"goal:    ", profile.Goal},
	}
	for _, row := range rows {
		fmt.Printf("  %s %s\n", labelStyle.Render(row.label), valueStyle.Render(row.value))
	}
	return nil
}

// runProfileEdit updates profile fields given as --options, fetching
// the current profile first so unset fields keep their values.
func runProfileEdit(ctx context.Context, deps *Deps, args *Args) error {
	profile, err := deps.Client.MyProfile(ctx)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}

	changed := false
	if v, ok := args.Options["age"]; ok {
		profile.Age, err = strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("--age must be a number")
		}
		changed = true
	}
	if v, ok := args.Options["sex"]; ok {
		profile.Sex = v
		changed = true
	}
	if v, ok := args.Options["height"]; ok {
		profile.HeightCm, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("--height must be centimeters")
		}
		changed = true
	}
	if v, ok := args.Options["weight"]; ok {
		profile.WeightKg, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("--weight must be kilograms")
		}
		changed = true
	}
	if v, ok := args.Options["activity"]; ok {
		profile.ActivityLevel = v
		changed = true
	}
	if v, ok := args.Options["goal"]; ok {
		profile.Goal = v
		changed = true
	}

	if !changed {
		return fmt.Errorf("nothing to change, pass e.g. --weight 72.5 --goal maintain")
	}
	if err := validateProfile(profile); err != nil {
		return err
	}
	if err := deps.Client.UpdateProfile(ctx, profile); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	fmt.Println(successStyle.Render("Profile updated."))
	return nil
}

func validateProfile(p model.Profile) error {
	if p.Age < 0 || p.Age > 150 {
		return fmt.Errorf("age %d is out of range", p.Age)
	}
	if p.HeightCm < 0 || p.WeightKg < 0 {
		return fmt.Errorf("height and weight must not be negative")
	}
	return nil
}
