package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ultracore/config"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		strategy      string
		walDir        string
		intervalStr   string
		thresholdStr  string
		systemUserStr string
		dashboardAddr string
		confirm       bool
	)

	// defaults
	walDir = "wal"
	intervalStr = "5s"
	thresholdStr = "2"
	systemUserStr = "1"
	dashboardAddr = ":8080"

	// step 1: welcome
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("ULTRACORE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's get your exchange running.\n"))

	// issuer selection strategy
	fmt.Println(stepStyle.Render("STEP 1: ISSUER SELECTION"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose how fallback purchases pick issuers").
				Options(
					huh.NewOption("First issuer first served (oldest stock first)", config.StrategyFirstIssuer),
					huh.NewOption("Random issuer with fallback", config.StrategyRandom),
				).
				Value(&strategy),
		),
	).Run()
	if err != nil {
		return err
	}

	// storage
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("ULTRACORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: STORAGE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("WAL Directory").
				Description("Directory for write-ahead logs").
				Value(&walDir).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("directory cannot be empty")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// engine timing
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("ULTRACORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: ENGINE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Settle Interval").
				Description("Pause between match cycles (e.g. 5s, 1m)").
				Value(&intervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewInput().
				Title("Match Attempt Threshold").
				Description("Attempts before an order falls back to issuer settlement").
				Value(&thresholdStr).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("System User ID").
				Description("Account that collects spread profit").
				Value(&systemUserStr).
				Validate(validatePositiveInt),
		),
	).Run()
	if err != nil {
		return err
	}

	// dashboard
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("ULTRACORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: DASHBOARD"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dashboard Address").
				Description("Listen address (e.g. :8080)").
				Value(&dashboardAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("ULTRACORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Strategy: %s\nWAL dir: %s\nSettle interval: %s\nMatch attempts: %s\nSystem user: %s\nDashboard: %s\n",
		strategy, walDir, intervalStr, thresholdStr, systemUserStr, dashboardAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	interval, _ := time.ParseDuration(intervalStr)
	threshold, _ := strconv.Atoi(thresholdStr)
	systemUser, _ := strconv.ParseInt(systemUserStr, 10, 64)

	cfgTmp := config.ConfigTmp{
		WalDir:                walDir,
		SettleInterval:        interval,
		MatchAttemptThreshold: threshold,
		SystemUserID:          systemUser,
		SelectionStrategy:     strategy,
		DashboardAddr:         dashboardAddr,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting engine...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validatePositiveInt(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}
