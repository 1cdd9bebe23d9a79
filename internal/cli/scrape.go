package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/scraper"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/util"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/worker"
)

var (
	scrapeSitemap      string
	scrapeURLsFile     string
	scrapeSections     int
	scrapeOutput       string
	scrapeBatchSize    int
	scrapeWorkers      int
	scrapeDelay        time.Duration
	scrapeInsecure     bool
	scrapeIgnoreRobots bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Build the corpus file from a documentation sitemap",
	Long: `Scrape reads a sitemap, keeps the URLs of its most populated sections,
fetches each page (honoring robots.txt) and saves the page prose as a JSON
array of {"url", "content"} records. Records are saved every --batch pages so
a crash loses at most one batch.

Example:
  qna scrape --sitemap https://developers.oxylabs.io/sitemap.xml
  qna scrape --sitemap https://example.com/sitemap.xml -n 3 -o data/raw_data.json
  qna scrape --urls urls.txt`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&scrapeSitemap, "sitemap", "s", "", "sitemap URL")
	scrapeCmd.Flags().StringVar(&scrapeURLsFile, "urls", "", "file with one URL per line (instead of --sitemap)")
	scrapeCmd.Flags().IntVarP(&scrapeSections, "sections", "n", 0, "number of sections to keep (default from config, 2)")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "output JSON file (default: the corpus path)")
	scrapeCmd.Flags().IntVarP(&scrapeBatchSize, "batch", "b", 0, "records per incremental save (default from config, 100)")
	scrapeCmd.Flags().IntVar(&scrapeWorkers, "workers", 0, "concurrent page fetches (default from config, 1)")
	scrapeCmd.Flags().DurationVar(&scrapeDelay, "delay", -1, "politeness delay between requests to one host")
	scrapeCmd.Flags().BoolVar(&scrapeInsecure, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	scrapeCmd.Flags().BoolVar(&scrapeIgnoreRobots, "ignore-robots", false, "do not consult robots.txt")
}

func runScrape(cmd *cobra.Command, args []string) error {
	if (scrapeSitemap == "") == (scrapeURLsFile == "") {
		return fmt.Errorf("exactly one of --sitemap or --urls is required")
	}

	cfg, log, err := mustConfig()
	if err != nil {
		return err
	}

	scfg := scraper.ConfigFromModel(cfg.Scraper)
	if scrapeSections > 0 {
		scfg.Sections = scrapeSections
	}
	if scrapeBatchSize > 0 {
		scfg.BatchSize = scrapeBatchSize
	}
	if scrapeWorkers > 0 {
		scfg.Workers = scrapeWorkers
	}
	if scrapeDelay >= 0 {
		scfg.Delay = scrapeDelay
	}
	scfg.Insecure = scrapeInsecure
	scfg.IgnoreRobots = scrapeIgnoreRobots
	scfg.HTTPProxy, scfg.HTTPSProxy, scfg.NoProxy = cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy

	output := scrapeOutput
	if output == "" {
		output = cfg.ResolvedCorpusPath()
	}

	s, err := scraper.New(scfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stats *scraper.Stats
	if scrapeSitemap != "" {
		stats, err = s.Run(ctx, scrapeSitemap, output)
	} else {
		var urls []string
		urls, err = worker.ReadURLsFromFile(scrapeURLsFile)
		if err != nil {
			return err
		}
		stats, err = s.ScrapePages(ctx, urls, output)
	}
	if stats != nil {
		printScrapeStats(stats, output)
	}
	return err
}

func printScrapeStats(stats *scraper.Stats, output string) {
	if len(stats.Sections) > 0 {
		fmt.Printf("Sections: %s\n", strings.Join(stats.Sections, ", "))
	}
	if stats.Discovered > 0 {
		fmt.Printf("URLs in sitemap: %d\n", stats.Discovered)
	}
	fmt.Printf("Pages selected:  %d\n", stats.Selected)
	fmt.Printf("Saved:           %d\n", stats.Saved)
	fmt.Printf("Empty:           %d\n", stats.Empty)
	fmt.Printf("Robots skipped:  %d\n", stats.Skipped)
	fmt.Printf("Failed:          %d\n", stats.Failed)
	if stats.Saved > 0 {
		fmt.Printf("\n✓ Corpus written to %s\n", output)
	}
}

// robotsCmd represents the robots command
var robotsCmd = &cobra.Command{
	Use:   "robots <url>",
	Short: "Print a site's robots.txt",
	Long: `Robots downloads and prints the robots.txt of the site serving the
given URL, to check what may be scraped before running qna scrape.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := mustConfig()
		if err != nil {
			return err
		}

		client := util.NewHTTPClient(cfg.Scraper.Timeout, cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy)
		file, err := scraper.FetchRobots(cmd.Context(), client, cfg.Scraper.UserAgent, args[0])
		if err != nil {
			return fmt.Errorf("error fetching robots.txt: %w", err)
		}

		if file.StatusCode != 200 {
			fmt.Printf("robots.txt not found (status %d) at %s\n", file.StatusCode, file.URL)
			return nil
		}

		fmt.Printf("\n===== robots.txt from %s =====\n\n", file.URL)
		fmt.Println(file.Body)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(robotsCmd)
}
