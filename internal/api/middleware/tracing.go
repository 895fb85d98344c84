package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/m04kA/SMC-RentalService/pkg/tracing"
)

// Tracing оборачивает обработчик в otelhttp: входящий traceparent подхватывается,
// имя спана "METHOD /route/{template}", ID запроса пишется атрибутом
func Tracing(serviceName string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		withRequestID := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := GetRequestID(r.Context()); id != "" {
				trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("http.request_id", id))
			}
			next.ServeHTTP(w, r)
		})

		return otelhttp.NewHandler(withRequestID, serviceName,
			otelhttp.WithPropagators(tracing.Propagator()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + routeTemplate(r)
			}),
		)
	}
}
