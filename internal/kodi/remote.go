package kodi

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// JSON-RPC method names used by the bridge.
const (
	MethodGetActivePlayers = "Player.GetActivePlayers"
	MethodPlayPause        = "Player.PlayPause"
	MethodStop             = "Player.Stop"
	MethodOpen             = "Player.Open"
	MethodSetMute          = "Application.SetMute"
	MethodSetVolume        = "Application.SetVolume"
	MethodExecuteAddon     = "Addons.ExecuteAddon"
	MethodGetMovies        = "VideoLibrary.GetMovies"
	MethodGetTVShows       = "VideoLibrary.GetTVShows"
	MethodGetEpisodes      = "VideoLibrary.GetEpisodes"
	MethodScan             = "VideoLibrary.Scan"
	MethodActivateWindow   = "GUI.ActivateWindow"
	MethodGetChannels      = "PVR.GetChannels"
	MethodShutdown         = "System.Shutdown"
)

const (
	// cecAddonID is the add-on that switches the TV input over HDMI-CEC.
	cecAddonID = "script.json-cec"

	youtubeAddonID = "plugin.video.youtube"
)

// Player is an active Kodi player.
type Player struct {
	PlayerID int    `json:"playerid"`
	Type     string `json:"type"`
}

// Movie is a movie in the video library.
type Movie struct {
	MovieID int    `json:"movieid"`
	Label   string `json:"label"`
	Title   string `json:"title"`
	Year    int    `json:"year"`
}

// TVShow is a TV show in the video library.
type TVShow struct {
	TVShowID int    `json:"tvshowid"`
	Label    string `json:"label"`
	Title    string `json:"title"`
}

// Episode is a single episode of a TV show.
type Episode struct {
	EpisodeID int    `json:"episodeid"`
	Label     string `json:"label"`
	Title     string `json:"title"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	PlayCount int    `json:"playcount"`
}

// Channel is a PVR TV channel.
type Channel struct {
	ChannelID        int    `json:"channelid"`
	Label            string `json:"label"`
	ChannelNumber    int    `json:"channelnumber"`
	SubChannelNumber int    `json:"subchannelnumber"`
}

// Number returns the channel number as shown to viewers, e.g. "5" or "5.1".
func (c Channel) Number() string {
	if c.SubChannelNumber > 0 {
		return fmt.Sprintf("%d.%d", c.ChannelNumber, c.SubChannelNumber)
	}
	return strconv.Itoa(c.ChannelNumber)
}

// Remote exposes the Kodi operations the bridge needs as typed methods.
//
// Each method issues its calls in order and stops at the first failure.
// All errors are *RemoteCallError.
type Remote struct {
	instance string
	caller   Caller
}

// NewRemote binds a Remote to a caller for the named instance.
func NewRemote(instance string, caller Caller) *Remote {
	return &Remote{instance: instance, caller: caller}
}

// Instance returns the id of the instance the remote controls.
func (r *Remote) Instance() string {
	return r.instance
}

// notFound builds the error returned when a lookup finds nothing.
func (r *Remote) notFound(method, what, query string) error {
	return &RemoteCallError{
		Instance: r.instance,
		Method:   method,
		Err:      fmt.Errorf("%w: %s %q", ErrNotFound, what, query),
	}
}

// ActivePlayers lists the players currently running.
func (r *Remote) ActivePlayers(ctx context.Context) ([]Player, error) {
	var players []Player
	if err := r.caller.Call(ctx, MethodGetActivePlayers, nil, &players); err != nil {
		return nil, err
	}
	return players, nil
}

// PlayPause toggles playback on every active player.
func (r *Remote) PlayPause(ctx context.Context) error {
	return r.eachPlayer(ctx, MethodPlayPause)
}

// Stop stops every active player.
func (r *Remote) Stop(ctx context.Context) error {
	return r.eachPlayer(ctx, MethodStop)
}

func (r *Remote) eachPlayer(ctx context.Context, method string) error {
	players, err := r.ActivePlayers(ctx)
	if err != nil {
		return err
	}
	for _, p := range players {
		if err := r.caller.Call(ctx, method, map[string]any{"playerid": p.PlayerID}, nil); err != nil {
			return err
		}
	}
	return nil
}

// ToggleMute flips the mute state.
func (r *Remote) ToggleMute(ctx context.Context) error {
	return r.caller.Call(ctx, MethodSetMute, map[string]any{"mute": "toggle"}, nil)
}

// SetVolume sets the volume to level, 0 to 100.
func (r *Remote) SetVolume(ctx context.Context, level int) error {
	return r.caller.Call(ctx, MethodSetVolume, map[string]any{"volume": level}, nil)
}

// ActivateTV asks the CEC add-on to switch the TV to Kodi's input.
func (r *Remote) ActivateTV(ctx context.Context) error {
	params := map[string]any{
		"addonid": cecAddonID,
		"params":  map[string]string{"command": "activate"},
	}
	return r.caller.Call(ctx, MethodExecuteAddon, params, nil)
}

// ScanLibrary starts a video library scan.
func (r *Remote) ScanLibrary(ctx context.Context) error {
	return r.caller.Call(ctx, MethodScan, nil, nil)
}

// Shutdown powers the host down.
func (r *Remote) Shutdown(ctx context.Context) error {
	return r.caller.Call(ctx, MethodShutdown, nil, nil)
}

// Movies lists every movie in the library.
func (r *Remote) Movies(ctx context.Context) ([]Movie, error) {
	var result struct {
		Movies []Movie `json:"movies"`
	}
	params := map[string]any{"properties": []string{"title", "year"}}
	if err := r.caller.Call(ctx, MethodGetMovies, params, &result); err != nil {
		return nil, err
	}
	return result.Movies, nil
}

// TVShows lists every TV show in the library.
func (r *Remote) TVShows(ctx context.Context) ([]TVShow, error) {
	var result struct {
		TVShows []TVShow `json:"tvshows"`
	}
	params := map[string]any{"properties": []string{"title"}}
	if err := r.caller.Call(ctx, MethodGetTVShows, params, &result); err != nil {
		return nil, err
	}
	return result.TVShows, nil
}

// Episodes lists the episodes of a show. A negative season lists all of them.
func (r *Remote) Episodes(ctx context.Context, tvshowID, season int) ([]Episode, error) {
	params := map[string]any{
		"tvshowid":   tvshowID,
		"properties": []string{"title", "season", "episode", "playcount"},
	}
	if season >= 0 {
		params["season"] = season
	}

	var result struct {
		Episodes []Episode `json:"episodes"`
	}
	if err := r.caller.Call(ctx, MethodGetEpisodes, params, &result); err != nil {
		return nil, err
	}

	SortEpisodes(result.Episodes)
	return result.Episodes, nil
}

// Channels lists every PVR TV channel.
func (r *Remote) Channels(ctx context.Context) ([]Channel, error) {
	params := map[string]any{
		"channelgroupid": "alltv",
		"properties":     []string{"channelnumber", "subchannelnumber"},
	}
	var result struct {
		Channels []Channel `json:"channels"`
	}
	if err := r.caller.Call(ctx, MethodGetChannels, params, &result); err != nil {
		return nil, err
	}
	return result.Channels, nil
}

// FindMovie returns the library movie that best matches name.
func (r *Remote) FindMovie(ctx context.Context, name string) (Movie, error) {
	movies, err := r.Movies(ctx)
	if err != nil {
		return Movie{}, err
	}
	titles := make([]string, len(movies))
	for i, m := range movies {
		titles[i] = displayTitle(m.Title, m.Label)
	}
	idx := bestMatch(name, titles)
	if idx < 0 {
		return Movie{}, r.notFound(MethodGetMovies, "movie", name)
	}
	return movies[idx], nil
}

// FindTVShow returns the library show that best matches name.
func (r *Remote) FindTVShow(ctx context.Context, name string) (TVShow, error) {
	shows, err := r.TVShows(ctx)
	if err != nil {
		return TVShow{}, err
	}
	titles := make([]string, len(shows))
	for i, s := range shows {
		titles[i] = displayTitle(s.Title, s.Label)
	}
	idx := bestMatch(name, titles)
	if idx < 0 {
		return TVShow{}, r.notFound(MethodGetTVShows, "tv show", name)
	}
	return shows[idx], nil
}

// FindEpisode returns episode number of season in the given show.
func (r *Remote) FindEpisode(ctx context.Context, tvshowID, season, episode int) (Episode, error) {
	episodes, err := r.Episodes(ctx, tvshowID, season)
	if err != nil {
		return Episode{}, err
	}
	for _, ep := range episodes {
		if ep.Season == season && ep.Episode == episode {
			return ep, nil
		}
	}
	return Episode{}, r.notFound(MethodGetEpisodes, "episode", fmt.Sprintf("S%02dE%02d", season, episode))
}

// FindChannel returns the PVR channel whose label best matches name.
func (r *Remote) FindChannel(ctx context.Context, name string) (Channel, error) {
	channels, err := r.Channels(ctx)
	if err != nil {
		return Channel{}, err
	}
	labels := make([]string, len(channels))
	for i, c := range channels {
		labels[i] = c.Label
	}
	idx := bestMatch(name, labels)
	if idx < 0 {
		return Channel{}, r.notFound(MethodGetChannels, "channel", name)
	}
	return channels[idx], nil
}

// FindChannelByNumber returns the PVR channel with exactly this number.
func (r *Remote) FindChannelByNumber(ctx context.Context, number string) (Channel, error) {
	channels, err := r.Channels(ctx)
	if err != nil {
		return Channel{}, err
	}
	for _, c := range channels {
		if c.Number() == number {
			return c, nil
		}
	}
	return Channel{}, r.notFound(MethodGetChannels, "channel number", number)
}

// OpenMovie starts playback of a library movie.
func (r *Remote) OpenMovie(ctx context.Context, movieID int) error {
	return r.open(ctx, map[string]any{"movieid": movieID})
}

// OpenEpisode starts playback of a library episode.
func (r *Remote) OpenEpisode(ctx context.Context, episodeID int) error {
	return r.open(ctx, map[string]any{"episodeid": episodeID})
}

// OpenChannel tunes to a PVR channel.
func (r *Remote) OpenChannel(ctx context.Context, channelID int) error {
	return r.open(ctx, map[string]any{"channelid": channelID})
}

// OpenFile plays a file or plugin URL.
func (r *Remote) OpenFile(ctx context.Context, file string) error {
	return r.open(ctx, map[string]any{"file": file})
}

// OpenYouTubeVideo plays a YouTube video through the YouTube add-on.
func (r *Remote) OpenYouTubeVideo(ctx context.Context, videoID string) error {
	return r.OpenFile(ctx, fmt.Sprintf("plugin://%s/play/?video_id=%s", youtubeAddonID, videoID))
}

func (r *Remote) open(ctx context.Context, item map[string]any) error {
	return r.caller.Call(ctx, MethodOpen, map[string]any{"item": item}, nil)
}

// ShowTVShow opens the video window on a show's season list.
func (r *Remote) ShowTVShow(ctx context.Context, tvshowID int) error {
	return r.ActivateWindow(ctx, "videos", fmt.Sprintf("videodb://tvshows/titles/%d/", tvshowID))
}

// SearchYouTube opens the YouTube add-on's search results for query.
func (r *Remote) SearchYouTube(ctx context.Context, query string) error {
	return r.ActivateWindow(ctx, "videos",
		fmt.Sprintf("plugin://%s/kodion/search/query/?q=%s", youtubeAddonID, url.QueryEscape(query)))
}

// ActivateWindow switches the GUI to window with optional parameters.
func (r *Remote) ActivateWindow(ctx context.Context, window string, parameters ...string) error {
	params := map[string]any{"window": window}
	if len(parameters) > 0 {
		params["parameters"] = parameters
	}
	return r.caller.Call(ctx, MethodActivateWindow, params, nil)
}

// SortEpisodes orders episodes by season then episode number.
func SortEpisodes(episodes []Episode) {
	sort.SliceStable(episodes, func(i, j int) bool {
		if episodes[i].Season != episodes[j].Season {
			return episodes[i].Season < episodes[j].Season
		}
		return episodes[i].Episode < episodes[j].Episode
	})
}

// NextEpisode picks the episode to resume a show with: the first unwatched
// one in season order, or the last episode when everything has been seen.
// episodes must already be sorted with SortEpisodes.
func NextEpisode(episodes []Episode) (Episode, bool) {
	if len(episodes) == 0 {
		return Episode{}, false
	}
	for _, ep := range episodes {
		if ep.PlayCount == 0 {
			return ep, true
		}
	}
	return episodes[len(episodes)-1], true
}

func displayTitle(title, label string) string {
	if title != "" {
		return title
	}
	return label
}
