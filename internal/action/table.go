package action

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"

	"github.com/nerrad567/kodibridge/internal/kodi"
	"github.com/nerrad567/kodibridge/internal/youtube"
)

// VideoSearcher resolves a free-text query to a video. *youtube.Client
// satisfies it.
type VideoSearcher interface {
	Enabled() bool
	Search(ctx context.Context, query string) (youtube.Video, error)
}

// Env is what an action runs against.
type Env struct {
	Remote  *kodi.Remote
	YouTube VideoSearcher

	// Intn returns a random int in [0, n). Nil uses math/rand/v2.
	Intn func(n int) int
}

func (e Env) intn(n int) int {
	if e.Intn != nil {
		return e.Intn(n)
	}
	return rand.IntN(n)
}

// Action is one entry of the static routing table.
type Action struct {
	Kind   Kind
	Method string
	Path   string

	// Detached actions answer before their remote call completes.
	Detached bool

	fromQuery  func(url.Values) (Params, error)
	fromIntent func(IntentQuery) (Params, error)
	invoke     func(ctx context.Context, env Env, p Params) error
}

// FromQuery extracts parameters from a query string.
func (a Action) FromQuery(q url.Values) (Params, error) {
	return a.fromQuery(q)
}

// FromIntent extracts parameters from a structured intent.
func (a Action) FromIntent(in IntentQuery) (Params, error) {
	return a.fromIntent(in)
}

// Invoke performs the action. Remote calls run in order and the first
// failure ends the chain.
func (a Action) Invoke(ctx context.Context, env Env, p Params) error {
	if env.Remote == nil {
		return errors.New("action: no remote")
	}
	return a.invoke(ctx, env, p)
}

var table = []Action{
	{Kind: KindPlayPause, fromQuery: noParams, fromIntent: noIntentParams, invoke: playPause},
	{Kind: KindStop, fromQuery: noParams, fromIntent: noIntentParams, invoke: stop},
	{Kind: KindMute, fromQuery: noParams, fromIntent: noIntentParams, invoke: mute},
	{Kind: KindVolume, fromQuery: volumeFromQuery, fromIntent: volumeFromIntent, invoke: setVolume},
	{Kind: KindActivateTV, fromQuery: noParams, fromIntent: noIntentParams, invoke: activateTV},
	{Kind: KindPlayMovie, fromQuery: nameFromQuery, fromIntent: nameFromIntent, invoke: playMovie},
	{Kind: KindOpenTVShow, fromQuery: nameFromQuery, fromIntent: nameFromIntent, invoke: openTVShow},
	{Kind: KindScanLibrary, fromQuery: noParams, fromIntent: noIntentParams, invoke: scanLibrary},
	{Kind: KindPlayTVShow, fromQuery: nameFromQuery, fromIntent: nameFromIntent, invoke: playTVShow},
	{Kind: KindPlayEpisode, fromQuery: episodeFromQuery, fromIntent: episodeFromIntent, invoke: playEpisode},
	{Kind: KindShutdown, Detached: true, fromQuery: noParams, fromIntent: noIntentParams, invoke: shutdown},
	{Kind: KindShuffleEpisode, fromQuery: nameFromQuery, fromIntent: nameFromIntent, invoke: shuffleEpisode},
	{Kind: KindPlayPVRChannelByName, fromQuery: nameFromQuery, fromIntent: nameFromIntent, invoke: playChannelByName},
	{Kind: KindPlayYouTube, fromQuery: nameFromQuery, fromIntent: nameFromIntent, invoke: playYouTube},
	{Kind: KindPlayPVRChannelByNumber, fromQuery: numberFromQuery, fromIntent: numberFromIntent, invoke: playChannelByNumber},
}

func init() {
	for i := range table {
		table[i].Method = http.MethodGet
		table[i].Path = "/" + table[i].Kind.String()
	}
}

// Table returns the routing table, one GET route per action.
func Table() []Action {
	out := make([]Action, len(table))
	copy(out, table)
	return out
}

// Lookup returns the table entry for k.
func Lookup(k Kind) (Action, bool) {
	for _, a := range table {
		if a.Kind == k {
			return a, true
		}
	}
	return Action{}, false
}

// ForIntent returns the action named by an intent discriminant.
func ForIntent(name string) (Action, error) {
	k, ok := ParseKind(name)
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	a, _ := Lookup(k)
	return a, nil
}

// Invokers.

func playPause(ctx context.Context, env Env, _ Params) error {
	return env.Remote.PlayPause(ctx)
}

func stop(ctx context.Context, env Env, _ Params) error {
	return env.Remote.Stop(ctx)
}

func mute(ctx context.Context, env Env, _ Params) error {
	return env.Remote.ToggleMute(ctx)
}

func setVolume(ctx context.Context, env Env, p Params) error {
	return env.Remote.SetVolume(ctx, p.Level)
}

func activateTV(ctx context.Context, env Env, _ Params) error {
	return env.Remote.ActivateTV(ctx)
}

func scanLibrary(ctx context.Context, env Env, _ Params) error {
	return env.Remote.ScanLibrary(ctx)
}

func shutdown(ctx context.Context, env Env, _ Params) error {
	return env.Remote.Shutdown(ctx)
}

func playMovie(ctx context.Context, env Env, p Params) error {
	movie, err := env.Remote.FindMovie(ctx, p.Name)
	if err != nil {
		return err
	}
	return env.Remote.OpenMovie(ctx, movie.MovieID)
}

func openTVShow(ctx context.Context, env Env, p Params) error {
	show, err := env.Remote.FindTVShow(ctx, p.Name)
	if err != nil {
		return err
	}
	return env.Remote.ShowTVShow(ctx, show.TVShowID)
}

func playTVShow(ctx context.Context, env Env, p Params) error {
	_, episodes, err := showEpisodes(ctx, env, p.Name)
	if err != nil {
		return err
	}
	next, _ := kodi.NextEpisode(episodes)
	return env.Remote.OpenEpisode(ctx, next.EpisodeID)
}

func playEpisode(ctx context.Context, env Env, p Params) error {
	show, err := env.Remote.FindTVShow(ctx, p.Name)
	if err != nil {
		return err
	}
	ep, err := env.Remote.FindEpisode(ctx, show.TVShowID, p.Season, p.Episode)
	if err != nil {
		return err
	}
	return env.Remote.OpenEpisode(ctx, ep.EpisodeID)
}

func shuffleEpisode(ctx context.Context, env Env, p Params) error {
	_, episodes, err := showEpisodes(ctx, env, p.Name)
	if err != nil {
		return err
	}
	pick := episodes[env.intn(len(episodes))]
	return env.Remote.OpenEpisode(ctx, pick.EpisodeID)
}

// showEpisodes resolves a show by name and lists all of its episodes.
// An empty listing is reported as not found.
func showEpisodes(ctx context.Context, env Env, name string) (kodi.TVShow, []kodi.Episode, error) {
	show, err := env.Remote.FindTVShow(ctx, name)
	if err != nil {
		return kodi.TVShow{}, nil, err
	}
	episodes, err := env.Remote.Episodes(ctx, show.TVShowID, -1)
	if err != nil {
		return kodi.TVShow{}, nil, err
	}
	if len(episodes) == 0 {
		return kodi.TVShow{}, nil, &kodi.RemoteCallError{
			Instance: env.Remote.Instance(),
			Method:   kodi.MethodGetEpisodes,
			Err:      fmt.Errorf("%w: no episodes for %q", kodi.ErrNotFound, show.Title),
		}
	}
	return show, episodes, nil
}

func playChannelByName(ctx context.Context, env Env, p Params) error {
	ch, err := env.Remote.FindChannel(ctx, p.Name)
	if err != nil {
		return err
	}
	return env.Remote.OpenChannel(ctx, ch.ChannelID)
}

func playChannelByNumber(ctx context.Context, env Env, p Params) error {
	ch, err := env.Remote.FindChannelByNumber(ctx, p.Number)
	if err != nil {
		return err
	}
	return env.Remote.OpenChannel(ctx, ch.ChannelID)
}

// youtubeSearchMethod names the YouTube call in errors.
const youtubeSearchMethod = "youtube.search"

func playYouTube(ctx context.Context, env Env, p Params) error {
	if env.YouTube == nil || !env.YouTube.Enabled() {
		return env.Remote.SearchYouTube(ctx, p.Name)
	}

	video, err := env.YouTube.Search(ctx, p.Name)
	if err != nil {
		sentinel := kodi.ErrUnreachable
		switch {
		case errors.Is(err, youtube.ErrNoResults):
			sentinel = kodi.ErrNotFound
		case errors.Is(err, context.DeadlineExceeded):
			sentinel = kodi.ErrTimeout
		}
		return &kodi.RemoteCallError{
			Instance: "youtube",
			Method:   youtubeSearchMethod,
			Err:      fmt.Errorf("%w: %w", sentinel, err),
		}
	}
	return env.Remote.OpenYouTubeVideo(ctx, video.ID)
}
