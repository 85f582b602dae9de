// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordRegistration()
	RecordVerificationSuccess()
	RecordVerificationFailure(reason string)
	RecordLogin()
	RecordBoardCreated()
	RecordReplyCreated()
	RecordBoardView()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations  prometheus.Counter
	verifySuccess  prometheus.Counter
	verifyFail     *prometheus.CounterVec
	logins         prometheus.Counter
	boardsCreated  prometheus.Counter
	repliesCreated prometheus.Counter
	boardViews     prometheus.Counter
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boardman_registrations_total",
			Help: "ユーザー登録の合計数",
		}),
		verifySuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boardman_verification_success_total",
			Help: "メール認証成功の合計数",
		}),
		verifyFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardman_verification_fail_total",
			Help: "メール認証失敗の合計数（失敗理由別）",
		}, []string{"reason"}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boardman_logins_total",
			Help: "ログイン成功の合計数",
		}),
		boardsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boardman_boards_created_total",
			Help: "作成された投稿の合計数",
		}),
		repliesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boardman_replies_created_total",
			Help: "作成された返信の合計数",
		}),
		boardViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boardman_board_views_total",
			Help: "投稿閲覧の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.registrations,
		c.verifySuccess,
		c.verifyFail,
		c.logins,
		c.boardsCreated,
		c.repliesCreated,
		c.boardViews,
		c.httpStatus,
	)

	return c
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordVerificationSuccess はメール認証成功を記録する。
func (c *Collector) RecordVerificationSuccess() {
	c.verifySuccess.Inc()
}

// RecordVerificationFailure はメール認証失敗を失敗理由とともに記録する。
func (c *Collector) RecordVerificationFailure(reason string) {
	c.verifyFail.WithLabelValues(reason).Inc()
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin() {
	c.logins.Inc()
}

// RecordBoardCreated は投稿作成を記録する。
func (c *Collector) RecordBoardCreated() {
	c.boardsCreated.Inc()
}

// RecordReplyCreated は返信作成を記録する。
func (c *Collector) RecordReplyCreated() {
	c.repliesCreated.Inc()
}

// RecordBoardView は投稿閲覧を記録する。
func (c *Collector) RecordBoardView() {
	c.boardViews.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
