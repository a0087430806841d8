// Package logger provee el logger Zap del servicio, con scoping por contexto.
//
//   - Singleton: una sola instancia global inicializada con Init() en main.
//   - Context scoping: cada request lleva un logger "scoped" con request_id,
//     method y path sin crear un core nuevo.
//   - Environments: "dev" usa consola con colores, "prod" JSON.
//
// Regla del dominio: jamás loguear un secreto en plaintext. Los eventos de
// ciclo de vida llevan sólo ids de registro y formas cifradas.
package logger
