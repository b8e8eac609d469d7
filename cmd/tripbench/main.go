package main

import (
	"context"
	"os"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tripbench/tripbench"
)

var rootCmd = &cobra.Command{
	Use:   "tripbench",
	Short: "Benchmark eager vs lazy ETL execution over the NYC taxi dataset",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run both strategies back to back and compare them",
	Run: func(cmd *cobra.Command, args []string) {
		driver := tripbench.NewDriver()
		if _, err := driver.Run(context.Background()); err != nil {
			log.Fatal(err)
		}
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare already-persisted metrics without re-running the benchmark",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := tripbench.CompareStored(os.Stdout); err != nil {
			log.Fatal(err)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo HTTP endpoints (health/info/benchmark)",
	Run: func(cmd *cobra.Command, args []string) {
		server, err := tripbench.NewServer(tripbench.NewDefaultStore())
		if err != nil {
			log.Fatal(err)
		}
		addr := viper.GetString("http_addr")
		log.Infof("Serving demo API on %s", addr)
		if err := server.Router().Run(addr); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("data", "data/yellow_tripdata_2015-01.csv", "Dataset path (CSV)")
	rootCmd.PersistentFlags().StringP("out", "o", "results", "Directory for metrics and report artifacts")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	viper.BindPFlag("data_path", rootCmd.PersistentFlags().Lookup("data"))
	viper.BindPFlag("results_dir", rootCmd.PersistentFlags().Lookup("out"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	runCmd.Flags().Duration("cooldown", 10*time.Second, "Pause between the two strategy runs")
	runCmd.Flags().Int("parallelism", runtime.NumCPU(), "Worker cap for the lazy strategy")
	runCmd.Flags().Int64("chunk-size", 64*1024*1024, "Scan chunk size in bytes for the lazy strategy")
	runCmd.Flags().Int("top-days", 10, "How many busiest days to surface in the summary")
	viper.BindPFlag("cooldown", runCmd.Flags().Lookup("cooldown"))
	viper.BindPFlag("parallelism", runCmd.Flags().Lookup("parallelism"))
	viper.BindPFlag("chunk_size", runCmd.Flags().Lookup("chunk-size"))
	viper.BindPFlag("top_days", runCmd.Flags().Lookup("top-days"))

	serveCmd.Flags().String("addr", ":8080", "Listen address for the demo API")
	viper.BindPFlag("http_addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(runCmd, compareCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
