// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 画像プロキシの結果ラベル
const (
	ImageResultOK         = "ok"
	ImageResultBadRequest = "bad_request"
	ImageResultNotFound   = "not_found"
	ImageResultError      = "error"
)

// 再検証の結果ラベル
const (
	RevalidateResultOK           = "ok"
	RevalidateResultUnauthorized = "unauthorized"
)

// Collector はPrometheusメトリクスを収集する。
// 各コンポーネントの観測インターフェースを実装し、依存性注入で渡す。
type Collector struct {
	cmsRequests     *prometheus.CounterVec
	cmsLatency      *prometheus.HistogramVec
	schemaFallbacks *prometheus.CounterVec
	recordMapBuilds *prometheus.CounterVec
	mediaResolves   *prometheus.CounterVec
	imageProxy      *prometheus.CounterVec
	renderCache     *prometheus.CounterVec
	revalidations   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cmsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_cms_requests_total",
			Help: "CMS API呼び出しの結果別の合計数",
		}, []string{"operation", "outcome"}),
		cmsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portfolio_cms_latency_seconds",
			Help:    "CMS API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		schemaFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_schema_fallbacks_total",
			Help: "スキーマ不一致による縮退クエリの合計数",
		}, []string{"collection", "step"}),
		recordMapBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_recordmap_builds_total",
			Help: "レコードマップ構築の経路別の合計数",
		}, []string{"path"}),
		mediaResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_media_resolutions_total",
			Help: "メディアURL解決の結果別の合計数",
		}, []string{"result"}),
		imageProxy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_image_proxy_total",
			Help: "画像プロキシのレスポンス結果別の合計数",
		}, []string{"result"}),
		renderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_render_cache_total",
			Help: "ページ描画キャッシュのヒット・ミス数",
		}, []string{"result"}),
		revalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_revalidations_total",
			Help: "再検証リクエストの結果別の合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.cmsRequests,
		c.cmsLatency,
		c.schemaFallbacks,
		c.recordMapBuilds,
		c.mediaResolves,
		c.imageProxy,
		c.renderCache,
		c.revalidations,
	)

	return c
}

// ObserveCMSRequest はCMS API呼び出しの結果とレイテンシを記録する。
func (c *Collector) ObserveCMSRequest(operation, outcome string, duration time.Duration) {
	c.cmsRequests.WithLabelValues(operation, outcome).Inc()
	c.cmsLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveSchemaFallback は縮退クエリへの切り替えを記録する。
func (c *Collector) ObserveSchemaFallback(collection, step string) {
	c.schemaFallbacks.WithLabelValues(collection, step).Inc()
}

// ObserveRecordMapBuild はレコードマップの構築経路を記録する。
func (c *Collector) ObserveRecordMapBuild(path string) {
	c.recordMapBuilds.WithLabelValues(path).Inc()
}

// ObserveMediaResolve はメディアURL解決の結果を記録する。
func (c *Collector) ObserveMediaResolve(result string) {
	c.mediaResolves.WithLabelValues(result).Inc()
}

// ObserveImageProxy は画像プロキシの結果を記録する。
func (c *Collector) ObserveImageProxy(result string) {
	c.imageProxy.WithLabelValues(result).Inc()
}

// ObserveRenderCache はページ描画キャッシュの結果を記録する。
func (c *Collector) ObserveRenderCache(result string) {
	c.renderCache.WithLabelValues(result).Inc()
}

// ObserveRevalidation は再検証リクエストの結果を記録する。
func (c *Collector) ObserveRevalidation(result string) {
	c.revalidations.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
