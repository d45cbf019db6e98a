package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/flow"
	"github.com/hawraz/carsell-flow/internal/intake"
)

var (
	stepStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// runFlow walks the seller through the five steps in order. Each step
// blocks on an interactive form and commits through the flow methods.
func runFlow(ctx context.Context, f *flow.Flow) error {
	steps := []func(context.Context, *flow.Flow) error{
		runLocationStep,
		runPhotosStep,
		runDetailsStep,
		runContactStep,
		runReviewStep,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func runLocationStep(ctx context.Context, f *flow.Flow) error {
	fmt.Println(stepStyle.Render("Step 1/5 · Location"))

	var country, state, city string
	if loc := f.Review().Location; loc != nil {
		country, state, city = loc.Country, loc.State, loc.City
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Country").
				Options(huh.NewOptions(flow.Countries()...)...).
				Value(&country),
			huh.NewSelect[string]().
				Title("State / Governorate").
				OptionsFunc(func() []huh.Option[string] {
					return huh.NewOptions(flow.States(country)...)
				}, &country).
				Value(&state),
			huh.NewInput().
				Title("City").
				Value(&city).
				Validate(requireNonEmpty("city")),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		return err
	}
	return f.SubmitLocation(country, state, city)
}

func runPhotosStep(ctx context.Context, f *flow.Flow) error {
	fmt.Println(stepStyle.Render("Step 2/5 · Photos"))
	fmt.Println(dimStyle.Render(fmt.Sprintf("  %d to %d photos or videos, 10MB max each", draft.MinImages, draft.MaxImages)))

	// Create the backend draft listing as soon as the photo step opens.
	// A failure here is retried before submit, so only log it.
	if err := f.EnsureListing(ctx); err != nil {
		fmt.Println(dimStyle.Render("  " + err.Error()))
	}

	grid := f.Grid()
	for {
		var paths string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewText().
					Title(fmt.Sprintf("Add files (%d/%d selected)", grid.Count(), draft.MaxImages)).
					Description("One file path per line. Submit empty to continue.").
					Value(&paths),
			),
		).WithTheme(huh.ThemeBase16())

		if err := form.Run(); err != nil {
			return err
		}

		if strings.TrimSpace(paths) == "" {
			if grid.CanAdvance() {
				break
			}
			fmt.Println(flow.MsgMinImages)
			continue
		}

		var files []intake.File
		for _, line := range strings.Split(paths, "\n") {
			p := strings.TrimSpace(line)
			if p == "" {
				continue
			}
			data, err := os.ReadFile(p)
			if err != nil {
				fmt.Printf("  cannot read %s: %v\n", p, err)
				continue
			}
			files = append(files, intake.File{Name: filepath.Base(p), Data: data})
		}
		for _, rej := range grid.Add(files) {
			fmt.Printf("  rejected: %s\n", rej.Reason)
		}
	}

	if err := f.EnsureListing(ctx); err != nil {
		return err
	}
	return f.SubmitPhotos(ctx)
}

func runDetailsStep(ctx context.Context, f *flow.Flow) error {
	fmt.Println(stepStyle.Render("Step 3/5 · Car details"))

	dform, err := f.LoadDetailsForm(ctx)
	if err != nil {
		return err
	}

	makeName := dform.Values["make"]
	model := dform.Values["model"]
	year := dform.Values["year"]
	color := dform.Values["color"]
	var price, mileage, trim, description string
	condition := "used"
	transmission := "automatic"
	fuelType := "gasoline"

	var makeField, modelField huh.Field
	if len(dform.Makes) > 0 {
		makeField = huh.NewSelect[string]().
			Title("Make").
			Options(huh.NewOptions(dform.Makes...)...).
			Value(&makeName)
	} else {
		makeField = huh.NewInput().
			Title("Make").
			Value(&makeName).
			Validate(requireNonEmpty("make"))
	}
	if len(dform.Makes) > 0 {
		modelField = huh.NewSelect[string]().
			Title("Model").
			OptionsFunc(func() []huh.Option[string] {
				models := f.Models(ctx, makeName)
				if len(models) == 0 {
					models = dform.Models
				}
				return huh.NewOptions(models...)
			}, &makeName).
			Value(&model)
	} else {
		modelField = huh.NewInput().
			Title("Model").
			Value(&model).
			Validate(requireNonEmpty("model"))
	}

	form := huh.NewForm(
		huh.NewGroup(
			makeField,
			modelField,
			huh.NewInput().
				Title("Year").
				Value(&year).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("year is required")
					}
					n, err := strconv.Atoi(s)
					if err != nil || n < 1900 || n > 2100 {
						return errors.New("must be a valid year")
					}
					return nil
				}),
			huh.NewInput().
				Title("Color").
				Value(&color),
			huh.NewInput().
				Title("Trim").
				Value(&trim),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Price (USD)").
				Value(&price).
				Validate(optionalNumber("price")),
			huh.NewInput().
				Title("Mileage (km)").
				Value(&mileage).
				Validate(optionalNumber("mileage")),
			huh.NewSelect[string]().
				Title("Condition").
				Options(huh.NewOptions("new", "used", "certified pre-owned")...).
				Value(&condition),
			huh.NewSelect[string]().
				Title("Transmission").
				Options(huh.NewOptions("automatic", "manual")...).
				Value(&transmission),
			huh.NewSelect[string]().
				Title("Fuel type").
				Options(huh.NewOptions("gasoline", "diesel", "hybrid", "electric")...).
				Value(&fuelType),
			huh.NewText().
				Title("Description").
				Value(&description),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		return err
	}

	// Track edits of AI-prefilled fields
	f.RecordOverride(ctx, "make", makeName)
	f.RecordOverride(ctx, "model", model)
	f.RecordOverride(ctx, "year", year)
	f.RecordOverride(ctx, "color", color)

	details := map[string]any{
		"make":         makeName,
		"model":        model,
		"condition":    condition,
		"transmission": transmission,
		"fuel_type":    fuelType,
	}
	if n, err := strconv.Atoi(year); err == nil {
		details["year"] = n
	}
	if v, err := strconv.ParseFloat(price, 64); err == nil {
		details["price"] = v
	}
	if v, err := strconv.ParseFloat(mileage, 64); err == nil {
		details["mileage"] = v
		details["mileage_unit"] = "km"
	}
	if color != "" {
		details["color"] = color
	}
	if trim != "" {
		details["trim"] = trim
	}
	if description != "" {
		details["description"] = description
	}

	return f.SubmitDetails(ctx, details)
}

func runContactStep(ctx context.Context, f *flow.Flow) error {
	fmt.Println(stepStyle.Render("Step 4/5 · Contact"))

	c := f.LoadContact(ctx)
	if len(c.ContactMethods) == 0 {
		c.ContactMethods = []string{"phone"}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Phone country code").
				Value(&c.PhoneCountryCode),
			huh.NewInput().
				Title("Phone number").
				Value(&c.Phone).
				Validate(requireNonEmpty("phone number")),
			huh.NewConfirm().
				Title("Show phone to buyers only?").
				Value(&c.ShowPhoneOnly),
			huh.NewMultiSelect[string]().
				Title("Preferred contact methods").
				Options(huh.NewOptions("phone", "chat", "whatsapp")...).
				Value(&c.ContactMethods),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Availability").
				Description("When buyers can reach you (optional)").
				Value(&c.Availability),
			huh.NewInput().
				Title("Exact address").
				Description("Shown after a sale is agreed (optional)").
				Value(&c.ExactAddress),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		return err
	}
	return f.SubmitContact(ctx, *c)
}

func runReviewStep(ctx context.Context, f *flow.Flow) error {
	fmt.Println(stepStyle.Render("Step 5/5 · Review & publish"))

	printSummary(f.Review())

	for {
		var ag flow.Agreement
		action := "publish"

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("I agree to the terms of service").
					Value(&ag.Terms),
				huh.NewConfirm().
					Title("The information provided is accurate").
					Value(&ag.Accurate),
				huh.NewConfirm().
					Title("Allow my photos to improve car detection (optional)").
					Value(&ag.Training),
				huh.NewSelect[string]().
					Title("Action").
					Options(
						huh.NewOption("Publish listing", "publish"),
						huh.NewOption("Save as draft", "draft"),
						huh.NewOption("Exit without publishing", "exit"),
					).
					Value(&action),
			),
		).WithTheme(huh.ThemeBase16())

		if err := form.Run(); err != nil {
			return err
		}

		var err error
		switch action {
		case "exit":
			fmt.Println("Your draft is saved locally and will resume next time.")
			return nil
		case "draft":
			err = f.SaveDraft(ctx)
		default:
			err = f.Publish(ctx, ag)
		}
		if err == nil {
			return nil
		}
		fmt.Println(err)
	}
}

func printSummary(s *flow.Summary) {
	fmt.Println()
	if s.Location != nil {
		fmt.Printf("  Location:  %s, %s, %s\n", s.Location.City, s.Location.State, s.Location.Country)
	}
	fmt.Printf("  Photos:    %d uploaded\n", len(s.Images))
	if s.CarDetails != nil {
		fmt.Printf("  Car:       %v %v %v\n", s.CarDetails["year"], s.CarDetails["make"], s.CarDetails["model"])
	}
	if s.Detection != nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("  AI detected %s %s (%s confidence)", s.Detection.Make, s.Detection.Model, s.Detection.ConfidenceLabel)))
	}
	if s.Contact != nil && s.Contact.Phone != "" {
		fmt.Printf("  Phone:     %s %s\n", s.Contact.PhoneCountryCode, s.Contact.Phone)
	}
	fmt.Println()
}

func requireNonEmpty(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func optionalNumber(name string) func(string) error {
	return func(s string) error {
		if s == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return fmt.Errorf("%s must be a number", name)
		}
		return nil
	}
}
