package middlewares

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/iridium/internal/observability/logger"
)

// =================================================================================
// STATUS RECORDER
// =================================================================================

// statusRecorder captura el status code y bytes escritos de la respuesta.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return // Evitar llamadas múltiples
	}
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// =================================================================================
// LOGGING MIDDLEWARE
// =================================================================================

// WithLogging registra cada request usando el logger singleton con campos estructurados.
// También inyecta un logger "scoped" en el contexto con request_id, method, path,
// que services y controllers recuperan vía logger.From(ctx).
//
// El nivel del log final depende del status: >=500 error, >=400 warn, resto info.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Obtener request ID (ya debería estar en header por WithRequestID)
			requestID := w.Header().Get("X-Request-ID")
			if requestID == "" {
				requestID = GetRequestID(r.Context())
			}

			// Crear logger scoped para este request
			reqLog := logger.L().With(
				logger.RequestID(requestID),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.ClientIP(clientIP(r)),
			)

			// Inyectar logger en contexto para uso en handlers/services
			ctx := logger.ToContext(r.Context(), reqLog)

			// Capturar respuesta
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(ctx))

			dur := time.Since(start)

			// Elegir nivel según status code
			switch {
			case rec.status >= 500:
				reqLog.Error("request failed",
					logger.Status(rec.status),
					logger.Bytes(rec.bytes),
					logger.DurationMs(dur.Milliseconds()),
				)
			case rec.status >= 400:
				reqLog.Warn("request completed with client error",
					logger.Status(rec.status),
					logger.Bytes(rec.bytes),
					logger.DurationMs(dur.Milliseconds()),
				)
			default:
				reqLog.Info("request completed",
					logger.Status(rec.status),
					logger.Bytes(rec.bytes),
					logger.DurationMs(dur.Milliseconds()),
				)
			}
		})
	}
}
