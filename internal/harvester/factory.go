package harvester

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const (
	ModeBrowser = "browser"
	ModeStatic  = "static"
)

// FromConfig builds the harvester selected by AITOOLS_HARVEST_MODE with the
// configured profile. Chrome is not started until Harvest is called.
func FromConfig(cfg *config.Config, logg *logger.Logger) (Harvester, Profile, error) {
	profile, err := SelectProfile(cfg.Harvest.ProfilesFile, cfg.Harvest.Profile)
	if err != nil {
		return nil, Profile{}, err
	}
	if profile.SourceURL == "" {
		profile.SourceURL = cfg.Scraper.SourceURL
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Harvest.Mode)) {
	case "", ModeBrowser:
		factory := ChromeFactory(ChromeOptions{
			Headless:    cfg.Harvest.Headless,
			ExecPath:    cfg.Harvest.ChromePath,
			UserAgent:   cfg.Fetch.UserAgent,
			StepTimeout: cfg.Harvest.StepTimeout,
		})
		return NewBrowserHarvester(factory, profile, logg), profile, nil
	case ModeStatic:
		return NewStaticHarvester(profile, cfg.Fetch.UserAgent, cfg.Fetch.Timeout, logg), profile, nil
	}
	return nil, Profile{}, fmt.Errorf("unknown harvest mode %q", cfg.Harvest.Mode)
}
