package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/code-payments/code-idl/pkg/metrics"
)

const (
	commandEventName = "IdlCommand"
	envMetadataKey   = "env"
)

var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "configuration file path",
	Value: "config.yaml",
}

// Env is what a running command gets to work with. It is prepared once per
// invocation by the app's Before hook.
type Env struct {
	Config Config
	Log    *logrus.Entry
	Stdout io.Writer

	ctx             context.Context
	metricsProvider *newrelic.Application
}

// Run builds the app around commands and runs it with args, which exclude
// the program name. It returns the process exit code.
func Run(commands []cli.Command, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := New(ctx, commands, stdout, stderr)
	if err := application.Run(append([]string{application.Name}, args...)); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// New returns the idl app. Commands should wrap their handlers with Action.
func New(ctx context.Context, commands []cli.Command, stdout, stderr io.Writer) *cli.App {
	application := cli.NewApp()
	application.Name = "idl"
	application.Usage = "encode, decode and derive addresses for Solana programs described by an IDL"
	application.Writer = stdout
	application.ErrWriter = stderr
	application.Flags = []cli.Flag{configFlag}
	application.Commands = commands
	application.Metadata = make(map[string]interface{})

	application.Before = func(c *cli.Context) error {
		env, err := newEnv(ctx, c.String(configFlag.Name), stdout)
		if err != nil {
			return err
		}
		c.App.Metadata[envMetadataKey] = env
		return nil
	}
	application.After = func(c *cli.Context) error {
		if env, ok := c.App.Metadata[envMetadataKey].(*Env); ok && env.metricsProvider != nil {
			env.metricsProvider.Shutdown(5 * time.Second)
		}
		return nil
	}
	application.Action = func(c *cli.Context) error {
		if c.NArg() > 0 {
			return errors.Errorf("unknown command %q", c.Args().First())
		}
		return cli.ShowAppHelp(c)
	}

	return application
}

// Action adapts fn into a command action. The command runs under the app's
// signal-aware context, inside a New Relic transaction when one is configured.
func Action(fn func(ctx context.Context, env *Env, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		env, ok := c.App.Metadata[envMetadataKey].(*Env)
		if !ok {
			return errors.New("app environment is not initialized")
		}

		name := c.Command.Name
		ctx := env.ctx
		if env.metricsProvider != nil {
			txn := env.metricsProvider.StartTransaction(name)
			defer txn.End()
			ctx = newrelic.NewContext(ctx, txn)
		}

		commandEnv := *env
		commandEnv.Log = env.Log.WithField("type", "app/"+name)

		err := fn(ctx, &commandEnv, c)
		metrics.RecordEvent(ctx, commandEventName, map[string]interface{}{
			"command": name,
			"success": err == nil,
		})
		if err != nil {
			if txn := newrelic.FromContext(ctx); txn != nil {
				txn.NoticeError(err)
			}
			return errors.Wrap(err, name)
		}
		return nil
	}
}

func newEnv(ctx context.Context, configPath string, stdout io.Writer) (*Env, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	var metricsProvider *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		metricsProvider, err = newrelic.NewApplication(
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			return nil, errors.Wrap(err, "error connecting to new relic")
		}
		ctx = metrics.WithApplication(ctx, metricsProvider)
	}

	configureLogger(config, metricsProvider)

	return &Env{
		Config:          config,
		Log:             logrus.StandardLogger().WithField("type", "app"),
		Stdout:          stdout,
		ctx:             ctx,
		metricsProvider: metricsProvider,
	}, nil
}

// loadConfig reads the config file if present, then applies environment
// overrides on top of the defaults.
func loadConfig(path string) (Config, error) {
	// viper.ReadInConfig only reports ConfigFileNotFoundError when it searches
	// for a file itself, so an explicit path is checked here.
	if _, err := os.Stat(path); err == nil {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "cannot read config")
		}
	} else if !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "cannot check config file")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, errors.Wrap(err, "cannot unmarshal config")
	}
	return config, nil
}

func configureLogger(config Config, metricsProvider *newrelic.Application) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics.NewNewRelicLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stderr)
}
