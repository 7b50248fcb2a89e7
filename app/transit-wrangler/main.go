package main

import (
	"fmt"
	logger "log"
	"os"

	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/sfcta/transit-wrangler/app/transit-wrangler/pipeline"
	"github.com/sfcta/transit-wrangler/foundation/database"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "WRANGLER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	// a .env file can carry the database credentials during development
	_ = godotenv.Load()

	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		Raw struct {
			Dir string `conf:"default:raw_stp"`
		}
		GTFS struct {
			Dir string `conf:"default:gtfs_feeds"`
			URL string `conf:"default:"`
		}
		Clipper struct {
			Dir string `conf:"default:clipper"`
		}
		NATS struct {
			URL string `conf:"default:"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Clean, expand and aggregate transit performance data"
	if err := conf.Parse(os.Args[1:], "WRANGLER", &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage("WRANGLER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString("WRANGLER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	steps := cfg.Args
	if len(steps) == 0 {
		printSteps()
		usage, err := conf.Usage("WRANGLER", &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		fmt.Println(usage)
		return fmt.Errorf("expected at least one step")
	}

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		err = db.Close()
		if err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	p, err := pipeline.NewPipeline(log, db, cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer p.Close()

	for _, step := range steps {
		if !pipeline.KnownStep(step) {
			printSteps()
			return fmt.Errorf("unknown step %q", step)
		}
		if err := p.Run(step, pipeline.Inputs{
			RawDir:     cfg.Raw.Dir,
			FeedDir:    cfg.GTFS.Dir,
			FeedURL:    cfg.GTFS.URL,
			ClipperDir: cfg.Clipper.Dir,
		}); err != nil {
			return err
		}
	}
	return nil
}

func printSteps() {
	fmt.Println("clean: rebuild the cleaned trip-stop table from raw STP files")
	fmt.Println("expand: rebuild the scheduled trip-stop table from GTFS feeds")
	fmt.Println("aggregate: join observations to the schedule and rebuild all rollup tables")
	fmt.Println("report: log row counts and monthly system boardings")
	fmt.Println("cleanClipper: rebuild the smartcard transaction table from csv exports")
}
