package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/stash"
	zaplog "github.com/unkn0wn-root/stash/log/zap"
)

// errMiss makes the process exit non-zero without printing anything.
var errMiss = errors.New("not found")

// target is the surface shared by *stash.Store and *stash.Cache.
type target interface {
	stash.Getter
	stash.Setter
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

type app struct {
	cfgPath  string
	useCache bool
	flags    Config

	cfg    Config
	log    *zap.Logger
	store  *stash.Store
	cache  *stash.Cache
	target target
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "stashctl",
		Short:         "Inspect and edit a stash store",
		Long:          "stashctl reads and writes TTL entries in a stash store, directly or through its cache layer.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", defaultConfigPath(), "Config file path (TOML)")
	pf.BoolVar(&a.useCache, "cache", false, "Operate on the cache layer instead of the raw store")
	pf.StringVar(&a.flags.Medium, "medium", "", "Medium: bolt, redis or memory")
	pf.StringVar(&a.flags.Path, "path", "", "Bolt database file")
	pf.StringVar(&a.flags.RedisAddr, "redis-addr", "", "Redis address")
	pf.StringVar(&a.flags.Namespace, "namespace", "", "Key namespace")
	pf.StringVar(&a.flags.Codec, "codec", "", "Codec: json, cbor or msgpack")
	pf.StringVar(&a.flags.CacheKey, "cache-key", "", "Store key holding the cache mapping")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		a.getCmd(),
		a.setCmd(),
		a.hasCmd(),
		a.delCmd(),
		a.clearCmd(),
		a.keysCmd(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.cfgPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	a.cfg = mergeFlags(cfg, a.flags)

	if a.log, err = a.cfg.newLogger(); err != nil {
		return err
	}
	cd, err := a.cfg.newCodec()
	if err != nil {
		return err
	}
	md, err := a.cfg.openMedium()
	if err != nil {
		return fmt.Errorf("open %s medium: %w", a.cfg.Medium, err)
	}
	a.store, err = stash.NewStore(stash.StoreOptions{
		Medium:    md,
		Codec:     cd,
		Namespace: a.cfg.Namespace,
		Logger:    zaplog.ZapLogger{L: a.log},
	})
	if err != nil {
		_ = md.Close(cmd.Context())
		return err
	}
	// the cache blob stays off limits to plain store commands
	cacheKey := defaultString(a.cfg.CacheKey, stash.DefaultCacheKey)
	a.store.Reserve(cacheKey)

	a.target = a.store
	if a.useCache {
		a.cache, err = stash.NewCache(cmd.Context(), a.store, stash.CacheOptions{Key: cacheKey})
		if err != nil {
			_ = a.store.Close(cmd.Context())
			return err
		}
		a.target = a.cache
	}
	a.log.Debug("store opened",
		zap.String("medium", a.cfg.Medium),
		zap.String("codec", a.cfg.Codec),
		zap.Bool("cache", a.useCache))
	return nil
}

// run opens the store around fn and closes it afterwards, also when fn fails,
// so the bolt file lock is released before the process or test moves on.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(cmd.Context()); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) close(ctx context.Context) error {
	if a.log != nil {
		defer func() { _ = a.log.Sync() }()
	}
	if a.store == nil {
		return nil
	}
	return a.store.Close(ctx)
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			var v any
			ok, err := a.target.Get(cmd.Context(), args[0], &v)
			if err != nil {
				return err
			}
			if !ok {
				return errMiss
			}
			out, err := json.Marshal(normalize(v))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		}),
	}
}

func (a *app) setCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store VALUE under KEY (VALUE is parsed as JSON, otherwise kept as a string)",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			return a.target.Set(cmd.Context(), args[0], parseValue(args[1]), ttl)
		}),
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Time to live (0 = never expires)")
	return cmd
}

func (a *app) hasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "has KEY",
		Short: "Exit 0 if KEY holds a live entry, 1 otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ok, err := a.target.Has(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return errMiss
			}
			return nil
		}),
	}
}

func (a *app) delCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "del KEY",
		Aliases: []string{"delete", "rm"},
		Short:   "Delete KEY",
		Args:    cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			return a.target.Delete(cmd.Context(), args[0])
		}),
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every key (the cache mapping only, with --cache)",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			return a.target.Clear(cmd.Context())
		}),
	}
}

func (a *app) keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List keys (live keys only, with --cache)",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			var (
				keys []string
				err  error
			)
			if a.cache != nil {
				keys = a.cache.Keys()
			} else if keys, err = a.store.Keys(cmd.Context()); err != nil {
				return err
			}
			sort.Strings(keys)
			for _, k := range keys {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), k); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func mergeFlags(cfg, f Config) Config {
	cfg.Medium = defaultString(f.Medium, cfg.Medium)
	cfg.Path = defaultString(f.Path, cfg.Path)
	cfg.RedisAddr = defaultString(f.RedisAddr, cfg.RedisAddr)
	cfg.Namespace = defaultString(f.Namespace, cfg.Namespace)
	cfg.Codec = defaultString(f.Codec, cfg.Codec)
	cfg.CacheKey = defaultString(f.CacheKey, cfg.CacheKey)
	cfg.LogLevel = defaultString(f.LogLevel, cfg.LogLevel)
	return cfg
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// normalize turns the map[any]any values produced by some decoders into
// map[string]any so they can be printed as JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = normalize(vv)
		}
		return out
	case map[string]any:
		for k, vv := range t {
			t[k] = normalize(vv)
		}
		return t
	case []any:
		for i, vv := range t {
			t[i] = normalize(vv)
		}
		return t
	default:
		return v
	}
}
