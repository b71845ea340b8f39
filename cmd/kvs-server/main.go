/*
Copyright (C) 2026  The kvs Authors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Command kvs-server runs the networked key/value server described by
// §4.8/§6: a TCP listener backed by a fixed worker pool, an optional
// archive backend for retired generations, an optional SQL audit mirror,
// and an optional read-only monitoring surface.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/kvsd/kvs/kv"
	"github.com/kvsd/kvs/monitor"
	"github.com/kvsd/kvs/netproto"
	"github.com/kvsd/kvs/threadpool"
)

const engineMarkerFile = "engine"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "kvs-server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("kvs-server", flag.ContinueOnError)

	addr := flagSet.String("addr", "127.0.0.1:4000", "listen address")
	engineName := flagSet.String("engine", "", "storage backend: kvs|sled (default: recorded value, else kvs)")
	threads := flagSet.Int("threads", runtime.NumCPU(), "worker pool size")
	monitorAddr := flagSet.String("monitor-addr", "", "optional read-only stats listen address")
	dataDir := flagSet.String("data-dir", ".", "data directory")
	archiveKind := flagSet.String("archive", "none", "archive backend: none|file|s3|ceph")
	archiveDir := flagSet.String("archive-dir", "", "FileArchiver destination directory")
	archiveCompress := flagSet.Bool("archive-compress", false, "compress archived generations")
	archiveCold := flagSet.Bool("archive-cold", false, "use the xz cold tier instead of lz4")
	archiveBucket := flagSet.String("archive-bucket", "", "S3Archiver bucket")
	archivePrefix := flagSet.String("archive-prefix", "", "archive key/object prefix")
	archiveRegion := flagSet.String("archive-region", "", "S3Archiver region")
	archiveEndpoint := flagSet.String("archive-endpoint", "", "S3Archiver custom endpoint")
	cephConfig := flagSet.String("ceph-config", "", "CephArchiver ceph.conf path")
	cephPool := flagSet.String("ceph-pool", "", "CephArchiver RADOS pool")
	auditDSN := flagSet.String("audit-dsn", "", "optional MySQL DSN for the compaction audit mirror")
	auditTable := flagSet.String("audit-table", "kvs_compactions", "audit mirror table name")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	resolvedEngine, err := resolveEngineName(*engineName)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(engineMarkerFile, strings.NewReader(resolvedEngine)); err != nil {
		return fmt.Errorf("writing %s marker: %w", engineMarkerFile, err)
	}

	archiver, err := buildArchiver(*archiveKind, archiverConfig{
		dir:      *archiveDir,
		compress: *archiveCompress,
		cold:     *archiveCold,
		bucket:   *archiveBucket,
		prefix:   *archivePrefix,
		region:   *archiveRegion,
		endpoint: *archiveEndpoint,
		cephCfg:  *cephConfig,
		cephPool: *cephPool,
	})
	if err != nil {
		return err
	}

	var mon *monitor.Monitor
	var audit kv.AuditSink
	if *auditDSN != "" {
		sink, err := kv.NewSQLAuditSink(*auditDSN, *auditTable)
		if err != nil {
			return err
		}
		defer sink.Close()
		audit = sink
	}

	logf := func(format string, args ...any) { fmt.Fprintf(os.Stderr, format+"\n", args...) }

	var engine kv.Engine
	switch resolvedEngine {
	case "kvs":
		store, err := kv.Open(*dataDir, kv.Options{Archiver: archiver, Audit: nil, Logf: logf})
		if err != nil {
			return err
		}
		defer store.Close()
		engine = store

		if *monitorAddr != "" {
			mon = monitor.New(store, logf)
		}
		if mon != nil && audit != nil {
			store.SetAudit(kv.MultiAuditSink{audit, mon})
		} else if mon != nil {
			store.SetAudit(mon)
		} else if audit != nil {
			store.SetAudit(audit)
		}
	case "sled":
		store, err := kv.OpenSled(*dataDir)
		if err != nil {
			return err
		}
		defer store.Close()
		engine = store
	}

	pool := threadpool.New(*threads, nil, logf)
	defer pool.Stop()

	server, err := netproto.Listen(*addr, engine, pool, logf)
	if err != nil {
		return err
	}
	defer server.Close()

	if mon != nil {
		go func() {
			if err := mon.ListenAndServe(*monitorAddr); err != nil {
				logf("monitor: %v", err)
			}
		}()
	}

	logf("kvs-server: listening on %s (engine=%s, threads=%d)", *addr, resolvedEngine, *threads)
	return server.Serve()
}

func resolveEngineName(requested string) (string, error) {
	recorded, err := os.ReadFile(engineMarkerFile)
	recordedName := ""
	if err == nil {
		recordedName = string(recorded)
	}

	if requested == "" {
		if recordedName != "" {
			return recordedName, nil
		}
		return "kvs", nil
	}
	if requested != "kvs" && requested != "sled" {
		return "", fmt.Errorf("invalid --engine %q: must be kvs or sled", requested)
	}
	if recordedName != "" && recordedName != requested {
		return "", fmt.Errorf("--engine %s conflicts with recorded engine %q", requested, recordedName)
	}
	return requested, nil
}

type archiverConfig struct {
	dir, prefix, bucket, region, endpoint string
	compress, cold                        bool
	cephCfg, cephPool                     string
}

func buildArchiver(kind string, cfg archiverConfig) (kv.Archiver, error) {
	tier := kv.CompressionFast
	if cfg.cold {
		tier = kv.CompressionCold
	}
	switch kind {
	case "none":
		return nil, nil
	case "file":
		if cfg.dir == "" {
			return nil, fmt.Errorf("--archive=file requires --archive-dir")
		}
		return &kv.FileArchiver{Dir: cfg.dir, Compress: cfg.compress, Tier: tier}, nil
	case "s3":
		if cfg.bucket == "" {
			return nil, fmt.Errorf("--archive=s3 requires --archive-bucket")
		}
		return &kv.S3Archiver{
			Bucket:   cfg.bucket,
			Prefix:   cfg.prefix,
			Region:   cfg.region,
			Endpoint: cfg.endpoint,
		}, nil
	case "ceph":
		if cfg.cephPool == "" {
			return nil, fmt.Errorf("--archive=ceph requires --ceph-pool")
		}
		return &kv.CephArchiver{ConfigFile: cfg.cephCfg, Pool: cfg.cephPool, Prefix: cfg.prefix}, nil
	default:
		return nil, fmt.Errorf("invalid --archive %q: must be none, file, s3, or ceph", kind)
	}
}
