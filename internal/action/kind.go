package action

import "strings"

// Kind enumerates the remote-control actions the bridge can perform.
type Kind int

// Action kinds. The zero value is not a valid kind.
const (
	KindPlayPause Kind = iota + 1
	KindStop
	KindMute
	KindVolume
	KindActivateTV
	KindPlayMovie
	KindOpenTVShow
	KindScanLibrary
	KindPlayTVShow
	KindPlayEpisode
	KindShutdown
	KindShuffleEpisode
	KindPlayPVRChannelByName
	KindPlayYouTube
	KindPlayPVRChannelByNumber
)

var kindNames = map[Kind]string{
	KindPlayPause:              "playpause",
	KindStop:                   "stop",
	KindMute:                   "mute",
	KindVolume:                 "volume",
	KindActivateTV:             "activatetv",
	KindPlayMovie:              "playmovie",
	KindOpenTVShow:             "opentvshow",
	KindScanLibrary:            "scanlibrary",
	KindPlayTVShow:             "playtvshow",
	KindPlayEpisode:            "playepisode",
	KindShutdown:               "shutdown",
	KindShuffleEpisode:         "shuffleepisode",
	KindPlayPVRChannelByName:   "playpvrchannelbyname",
	KindPlayYouTube:            "playyoutube",
	KindPlayPVRChannelByNumber: "playpvrchannelbynumber",
}

// String returns the action's wire name, which is also its route path
// without the leading slash and its intent discriminant.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a wire name to a Kind. Matching ignores case and
// surrounding whitespace.
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}
