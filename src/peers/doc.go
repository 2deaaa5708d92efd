// Package peers defines the cluster membership of a murmur deployment.
//
// Under the Maelstrom harness, membership arrives in the init message and no
// addresses are needed. When murmur runs its own TCP cluster, the membership
// and the address of every node are read from a peers.json file in the data
// directory:
//
//  [
//      {"ID": "n1", "NetAddr": "127.0.0.1:1337"},
//      {"ID": "n2", "NetAddr": "127.0.0.1:1338"},
//      {"ID": "lin-kv", "NetAddr": "127.0.0.1:1339", "Service": true}
//  ]
//
// Entries marked as services (the seq-kv and lin-kv stores) are addressable but
// are not members of the cluster: algorithms never count or replicate to them.
package peers
