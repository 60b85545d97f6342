package model

import "strings"

// Playlist 是从当前回合派生出的播放清单：按序的片段 URL 加一条音轨。
// 它不落地存储，每次快照解析后重新派生。
type Playlist struct {
	Clips []string
	Audio string
}

// PlaylistFromTurn 从回合记录派生播放清单。
// 空 URL 会被丢弃，剩余 URL 统一归一化。
func PlaylistFromTurn(turn *Turn) Playlist {
	if turn == nil {
		return Playlist{}
	}

	var clips []string
	for _, raw := range turn.VideoURLs {
		if url := NormalizeMediaURL(raw); url != "" {
			clips = append(clips, url)
		}
	}

	return Playlist{
		Clips: clips,
		Audio: NormalizeMediaURL(turn.AudioURL),
	}
}

// Equal 比较两个清单是否指向同一组媒体。
// 清单身份变化意味着必须整体卸载重载（不允许旧帧/旧音轨串场）。
func (p Playlist) Equal(other Playlist) bool {
	if p.Audio != other.Audio || len(p.Clips) != len(other.Clips) {
		return false
	}
	for i := range p.Clips {
		if p.Clips[i] != other.Clips[i] {
			return false
		}
	}
	return true
}

// IsEmpty 判断清单是否完全没有媒体。
func (p Playlist) IsEmpty() bool {
	return len(p.Clips) == 0 && p.Audio == ""
}

// NormalizeMediaURL 归一化媒体 URL。
// 约定：绝对 URL 原样返回；站内相对路径收敛为恰好一个前导分隔符，
// 例如 "media/videos/a.mp4" 和 "//media/videos/a.mp4" 都变成 "/media/videos/a.mp4"。
func NormalizeMediaURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "/" + strings.TrimLeft(url, "/")
}
