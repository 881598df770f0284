package cli

import (
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/feedlog/internal/cli/formatter"
	"github.com/alexanderramin/feedlog/internal/domain"
)

// Preset choices offered by the manual entry form. 0 means "other".
var (
	durationPresets = []int{5, 10, 15, 20, 30, 45}
	volumePresets   = []int{60, 90, 120, 150, 180, 210}
)

func feedlogHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

func newForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).WithTheme(feedlogHuhTheme()).WithShowHelp(false)
}

// credentialsForm asks for an email and, when the backend checks them, a password.
func credentialsForm(email, password *string, needPassword bool) *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Email").
			Value(email).
			Validate(validateEmail),
	}
	if needPassword {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password).
			Validate(func(s string) error {
				if s == "" {
					return fmt.Errorf("enter your password")
				}
				return nil
			}))
	}
	return newForm(huh.NewGroup(fields...))
}

// logFormValues backs the manual entry form.
type logFormValues struct {
	Date           string
	Start          string
	Type           domain.FeedingType
	DurationPreset int
	DurationCustom string
	VolumePreset   int
	VolumeCustom   string
	Notes          string
}

func newLogFormValues(now time.Time) *logFormValues {
	return &logFormValues{
		Date:           now.Format("2006-01-02"),
		Start:          now.Format("15:04"),
		Type:           domain.FeedingLeft,
		DurationPreset: 15,
		VolumePreset:   domain.DefaultBottleVolML,
	}
}

func (v *logFormValues) duration() int {
	if v.DurationPreset > 0 {
		return v.DurationPreset
	}
	return atoiOr(v.DurationCustom, 0)
}

func (v *logFormValues) volume() *int {
	if v.Type != domain.FeedingBottle {
		return nil
	}
	if v.VolumePreset > 0 {
		ml := v.VolumePreset
		return &ml
	}
	return volumePtr(atoiOr(v.VolumeCustom, 0))
}

// session converts the form into a feeding session in now's location.
// Validation of the result is left to the store.
func (v *logFormValues) session(now time.Time) (domain.FeedingSession, error) {
	day, err := parseDay(v.Date, now)
	if err != nil {
		return domain.FeedingSession{}, err
	}
	start, err := at(day, v.Start)
	if err != nil {
		return domain.FeedingSession{}, err
	}
	minutes := v.duration()
	end := start.Add(time.Duration(minutes) * time.Minute)
	return domain.FeedingSession{
		StartTime:    start,
		EndTime:      &end,
		Duration:     minutes,
		Type:         v.Type,
		BottleVolume: v.volume(),
		Notes:        v.Notes,
	}, nil
}

func presetOptions(values []int, unit string) []huh.Option[int] {
	opts := make([]huh.Option[int], 0, len(values)+1)
	for _, n := range values {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%d %s", n, unit), n))
	}
	return append(opts, huh.NewOption("Other...", 0))
}

func typeOptions() []huh.Option[domain.FeedingType] {
	types := []domain.FeedingType{domain.FeedingLeft, domain.FeedingRight, domain.FeedingBoth, domain.FeedingBottle}
	opts := make([]huh.Option[domain.FeedingType], 0, len(types))
	for _, t := range types {
		opts = append(opts, huh.NewOption(t.Label(), t))
	}
	return opts
}

// logForm is the manual entry form.
func logForm(v *logFormValues) *huh.Form {
	notBottle := func() bool { return v.Type != domain.FeedingBottle }
	return newForm(
		huh.NewGroup(
			huh.NewInput().Title("Date (YYYY-MM-DD)").Value(&v.Date).Validate(validateDate),
			huh.NewInput().Title("Start time (HH:MM)").Value(&v.Start).Validate(validateClock),
			huh.NewSelect[domain.FeedingType]().Title("Type").Options(typeOptions()...).Value(&v.Type),
		),
		huh.NewGroup(
			huh.NewSelect[int]().Title("Duration").Options(presetOptions(durationPresets, "min")...).Value(&v.DurationPreset),
		),
		huh.NewGroup(
			huh.NewInput().Title("Duration (minutes)").Value(&v.DurationCustom).Validate(validateDuration),
		).WithHideFunc(func() bool { return v.DurationPreset != 0 }),
		huh.NewGroup(
			huh.NewSelect[int]().Title("Bottle volume").Options(presetOptions(volumePresets, "ml")...).Value(&v.VolumePreset),
		).WithHideFunc(notBottle),
		huh.NewGroup(
			huh.NewInput().Title("Bottle volume (ml)").Value(&v.VolumeCustom).Validate(validateVolume),
		).WithHideFunc(func() bool { return notBottle() || v.VolumePreset != 0 }),
		huh.NewGroup(
			huh.NewText().Title("Notes (optional)").Value(&v.Notes),
		),
	)
}

// endForm collects notes and an optional duration override when a live
// session ends. duration is prefilled with the timed minutes.
func endForm(notes, duration *string) *huh.Form {
	return newForm(huh.NewGroup(
		huh.NewInput().Title("Duration (minutes)").Value(duration).Validate(validateDuration),
		huh.NewText().Title("Notes (optional)").Value(notes),
	))
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

func validateDate(s string) error {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("use YYYY-MM-DD format")
	}
	return nil
}

func validateClock(s string) error {
	if _, err := parseClock(s); err != nil {
		return fmt.Errorf("use HH:MM format")
	}
	return nil
}

func validateDuration(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil || domain.ValidateDuration(v) != nil {
		return fmt.Errorf("enter %d to %d minutes", domain.MinDurationMin, domain.MaxDurationMin)
	}
	return nil
}

func validateVolume(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil || v < domain.MinBottleVolumeML || v > domain.MaxBottleVolumeML {
		return fmt.Errorf("enter %d to %d ml", domain.MinBottleVolumeML, domain.MaxBottleVolumeML)
	}
	return nil
}
