// Package protocol implements the binary wire format that mirrors a
// rendered document onto remote clients.
//
// The server side records every mutating dom.Provider call as a Patch
// addressed by numeric node id and ships them in batches. Clients answer
// with Event frames naming the node and the event type. Nothing in the
// format knows about vdom; it describes DOM operations only.
//
// # Wire Format
//
// Every message is one frame with a 6-byte header:
//
//	┌────────────┬───────────┬───────────────────────────────┐
//	│ Frame Type │ Flags     │ Payload Length                │
//	│ (1 byte)   │ (1 byte)  │ (4 bytes, big-endian)         │
//	└────────────┴───────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FramePatches (0x01): Server → Client DOM mutations
//   - FrameEvent (0x02): Client → Server events
//   - FrameControl (0x03): Ping, pong, close
//
// A patches frame with FlagSnapshot rebuilds the client document from
// nothing; it is what a client receives when it connects.
//
// # Encoding
//
//   - Varint: unsigned integers and node ids (protobuf-style)
//   - Length-prefixed: strings, prefixed with a varint length
//   - Big-endian: the frame length and ping timestamps
//
// Decoders check every length and count against the bytes left and
// against MaxStringLen and MaxCollectionCount before allocating.
//
// # Usage Example
//
//	msg := protocol.PatchesMessage(&protocol.PatchesFrame{
//	    Seq: 1,
//	    Patches: []protocol.Patch{
//	        {Op: protocol.PatchCreateElement, Node: 2, Tag: "p"},
//	        {Op: protocol.PatchInsert, Node: 2, Parent: 1},
//	    },
//	}, 0)
//
//	f, err := protocol.DecodeFrame(msg)
//	if err != nil {
//	    // Handle error
//	}
//	pf, err := protocol.DecodePatches(f.Payload)
package protocol
