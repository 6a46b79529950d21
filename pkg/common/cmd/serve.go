// Copyright © 2024 OpenIM. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/openimsdk/tools/db/redisutil"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/spf13/cobra"

	"github.com/openimsdk/localcache/pkg/common/config"
	"github.com/openimsdk/localcache/pkg/common/prommetrics"
	"github.com/openimsdk/localcache/pkg/evictpub"
	"github.com/openimsdk/localcache/pkg/localcache"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd 启动缓存进程，直到收到SIGINT/SIGTERM
func NewServeCmd(root *RootCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cache with its admin HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.initLog(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Serve(ctx, root.Config())
		},
	}
}

// cacheOptions 把配置转换为缓存选项
func cacheOptions(conf config.LocalCache, opts ...localcache.Option) []localcache.Option {
	res := []localcache.Option{localcache.WithCapacity(conf.Capacity)}
	if conf.RefreshFrequency > 0 {
		res = append(res, localcache.WithRefreshFrequency(conf.RefreshFrequency))
	}
	if conf.LoaderTTL > 0 {
		res = append(res, localcache.WithLoaderTTL(conf.LoaderTTL))
	}
	return append(res, opts...)
}

// Serve 创建缓存并接入指标、淘汰事件发布和管理接口，ctx取消后依次关闭
func Serve(ctx context.Context, conf *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prommetrics.NewRegistry()
	target, err := prommetrics.NewLocalCacheTarget(reg, conf.Prometheus.Namespace)
	if err != nil {
		return err
	}
	cache := localcache.New[string, string](ctx, cacheOptions(conf.LocalCache, localcache.WithTarget(target))...)
	defer cache.Stop()

	if err := prommetrics.RegisterLen(reg, conf.Prometheus.Namespace, func() float64 { return float64(cache.Len()) }); err != nil {
		return err
	}

	if conf.Redis.Enable {
		closeRedis, err := wireRedis(ctx, cache, &conf.Redis)
		if err != nil {
			return err
		}
		defer closeRedis()
	}
	if conf.Kafka.Enable {
		closeKafka, err := wireKafka(ctx, cache, &conf.Kafka)
		if err != nil {
			return err
		}
		defer closeKafka()
	}

	if conf.Prometheus.Report != "" {
		reporter, err := newReporter(conf.Prometheus.Report, func() {
			report(ctx, cache, target)
		})
		if err != nil {
			return err
		}
		reporter.Start()
		defer reporter.Stop()
	}

	log.ZInfo(ctx, "local cache started", "capacity", conf.LocalCache.Capacity,
		"refreshFrequency", conf.LocalCache.RefreshFrequency, "version", Version)

	if !conf.Prometheus.Enable {
		<-ctx.Done()
		log.ZInfo(ctx, "local cache stopping", "cause", context.Cause(ctx))
		return nil
	}
	return runAdmin(ctx, conf.Prometheus, newAdminEngine(cache, target, reg))
}

func wireRedis(ctx context.Context, cache *localcache.LocalCache[string, string], conf *config.Redis) (func(), error) {
	rdb, err := redisutil.NewRedisClient(ctx, conf.Build())
	if err != nil {
		return nil, err
	}
	pub, err := evictpub.NewRedisPublisher[string](ctx, rdb, conf.Channel)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	handle := cache.Subscribe(pub.Subscriber())

	listenCtx, stopListen := context.WithCancel(ctx)
	listenDone := make(chan struct{})
	if conf.Listen {
		go func() {
			defer close(listenDone)
			pub.Listen(listenCtx, func(ctx context.Context, keys ...string) {
				for _, key := range keys {
					cache.Del(key)
				}
			})
		}()
	} else {
		close(listenDone)
	}
	log.ZInfo(ctx, "redis eviction publisher enabled", "channel", conf.Channel, "listen", conf.Listen)
	return func() {
		stopListen()
		<-listenDone
		cache.Unsubscribe(handle)
		pub.Close()
		if dropped := pub.Dropped(); dropped > 0 {
			log.ZWarn(ctx, "redis eviction publisher dropped keys", nil, "dropped", dropped)
		}
		if err := rdb.Close(); err != nil {
			log.ZWarn(ctx, "close redis client failed", err)
		}
	}, nil
}

func wireKafka(ctx context.Context, cache *localcache.LocalCache[string, string], conf *config.Kafka) (func(), error) {
	saramaConf, err := conf.BuildProducerConfig()
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(conf.Address, saramaConf)
	if err != nil {
		return nil, errs.WrapMsg(err, "new kafka producer failed", "address", conf.Address)
	}
	pub, err := evictpub.NewKafkaPublisher[string](ctx, producer, conf.Topic)
	if err != nil {
		_ = producer.Close()
		return nil, err
	}
	handle := cache.Subscribe(pub.Subscriber())
	log.ZInfo(ctx, "kafka eviction publisher enabled", "topic", conf.Topic)
	return func() {
		cache.Unsubscribe(handle)
		if err := pub.Close(); err != nil {
			log.ZWarn(ctx, "close kafka publisher failed", err)
		}
		if dropped := pub.Dropped(); dropped > 0 {
			log.ZWarn(ctx, "kafka eviction publisher dropped keys", nil, "dropped", dropped)
		}
	}, nil
}

func runAdmin(ctx context.Context, conf config.Prometheus, handler http.Handler) error {
	addr := net.JoinHostPort(conf.ListenIP, strconv.Itoa(conf.Ports[0]))
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		log.ZInfo(ctx, "admin server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errs.WrapMsg(err, "admin server failed", "addr", addr)
		}
	}()

	select {
	case <-ctx.Done():
		log.ZInfo(ctx, "admin server stopping", "cause", context.Cause(ctx))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errs.WrapMsg(err, "admin server shutdown failed", "addr", addr)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
