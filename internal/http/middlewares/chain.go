package middlewares

import "net/http"

// Middleware decora un http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain envuelve h con los middlewares dados. El primero de la lista
// queda más afuera: intercepta el request antes que el resto y es el
// último en tocar la respuesta.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// ChainFunc encadena middlewares sobre un http.HandlerFunc.
func ChainFunc(hf http.HandlerFunc, mws ...Middleware) http.Handler {
	return Chain(hf, mws...)
}
