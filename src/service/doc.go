// Package service exposes the stats and the membership of a murmur node over
// HTTP, on /stats and /peers.
package service
