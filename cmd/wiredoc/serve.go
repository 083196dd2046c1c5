package wiredoc

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ValentinKolb/wiredoc/journal/cluster"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a single-replica journal shard with an HTTP append/read/metrics API",
	RunE:  runServe,
}

func init() {
	serveCmd.PersistentFlags().Uint64("replica-id", 1, wrapString("Dragonboat replica ID for this node"))
	serveCmd.PersistentFlags().Uint64("shard-id", 100, wrapString("Dragonboat shard ID hosting the journal"))
	serveCmd.PersistentFlags().String("raft-address", "127.0.0.1:63001", wrapString("Address this replica's raft transport listens on"))
	serveCmd.PersistentFlags().String("data-dir", "data", wrapString("Directory dragonboat stores its WAL and snapshots in"))
	serveCmd.PersistentFlags().String("endpoint", "0.0.0.0:8080", wrapString("HTTP address serving /append, /read and /metrics"))
	serveCmd.PersistentFlags().Int64("capacity", 64*1024*1024, wrapString("Heap-backed journal capacity, in bytes"))
	serveCmd.PersistentFlags().Int64("timeout", 5, wrapString("Seconds to wait for a raft proposal or read to complete"))
	serveCmd.PersistentFlags().String("log-level", "info", wrapString("Log level for dragonboat and journal loggers (debug, info, warn, error)"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	initLoggers(viper.GetString("log-level"))

	replicaID := viper.GetUint64("replica-id")
	shardID := viper.GetUint64("shard-id")
	dataDir := viper.GetString("data-dir")

	nh, err := dragonboat.NewNodeHost(config.NodeHostConfig{
		WALDir:         dataDir,
		NodeHostDir:    dataDir,
		RTTMillisecond: 200,
		RaftAddress:    viper.GetString("raft-address"),
	})
	if err != nil {
		return fmt.Errorf("journal serve: creating node host: %w", err)
	}
	defer nh.Close()

	initialMembers := map[uint64]string{replicaID: viper.GetString("raft-address")}
	capacity := viper.GetInt64("capacity")

	if err := nh.StartConcurrentReplica(
		initialMembers,
		false,
		cluster.CreateStateMachineFactory(capacity),
		config.Config{
			ReplicaID:          replicaID,
			ShardID:            shardID,
			ElectionRTT:        10,
			HeartbeatRTT:       1,
			CheckQuorum:        true,
			SnapshotEntries:    100,
			CompactionOverhead: 50,
		},
	); err != nil {
		return fmt.Errorf("journal serve: starting shard %d: %w", shardID, err)
	}

	timeout := time.Duration(viper.GetInt64("timeout")) * time.Second
	j := cluster.NewJournal(nh, shardID, timeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/append", func(w http.ResponseWriter, r *http.Request) {
		handleAppend(j, w, r)
	})
	mux.HandleFunc("/read", func(w http.ResponseWriter, r *http.Request) {
		handleRead(j, w, r)
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	fmt.Printf("serving shard %d (replica %d) on %s\n", shardID, replicaID, viper.GetString("endpoint"))
	return http.ListenAndServe(viper.GetString("endpoint"), mux)
}

func handleAppend(j *cluster.Journal, w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := j.Append(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "%d\n", offset)
}

func handleRead(j *cluster.Journal, w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)
	if err != nil {
		http.Error(w, "invalid offset: "+err.Error(), http.StatusBadRequest)
		return
	}
	payload, _, ok, err := j.ReadAt(offset, r.URL.Query().Get("stale") == "true")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no document at that offset", http.StatusNotFound)
		return
	}
	w.Write(payload)
}
