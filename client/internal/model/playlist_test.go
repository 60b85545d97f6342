package model

import "testing"

// TestNormalizeMediaURL 验证媒体 URL 归一化约定。
// 场景：绝对 URL 原样保留；站内相对路径收敛为恰好一个前导分隔符。
func TestNormalizeMediaURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"http://cdn.example.com/a.mp4", "http://cdn.example.com/a.mp4"},
		{"https://cdn.example.com/a.mp4", "https://cdn.example.com/a.mp4"},
		{"media/videos/a.mp4", "/media/videos/a.mp4"},
		{"/media/videos/a.mp4", "/media/videos/a.mp4"},
		{"//media/videos/a.mp4", "/media/videos/a.mp4"},
		{"  media/a.mp4  ", "/media/a.mp4"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		if got := NormalizeMediaURL(c.in); got != c.want {
			t.Fatalf("NormalizeMediaURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// TestPlaylistFromTurnDropsEmptyURLs 验证派生清单时丢弃空 URL。
func TestPlaylistFromTurnDropsEmptyURLs(t *testing.T) {
	turn := &Turn{
		VideoURLs: []string{"media/a.mp4", "", "  ", "media/b.mp4"},
		AudioURL:  "media/a.mp3",
	}

	p := PlaylistFromTurn(turn)
	if len(p.Clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(p.Clips))
	}
	if p.Clips[0] != "/media/a.mp4" || p.Clips[1] != "/media/b.mp4" {
		t.Fatalf("unexpected clips: %v", p.Clips)
	}
	if p.Audio != "/media/a.mp3" {
		t.Fatalf("unexpected audio: %q", p.Audio)
	}
}

// TestPlaylistEqual 验证清单身份比较。
// 场景：片段顺序不同即身份不同（顺序变化也要求整体重载）。
func TestPlaylistEqual(t *testing.T) {
	a := Playlist{Clips: []string{"/a.mp4", "/b.mp4"}, Audio: "/a.mp3"}
	b := Playlist{Clips: []string{"/a.mp4", "/b.mp4"}, Audio: "/a.mp3"}
	if !a.Equal(b) {
		t.Fatalf("identical playlists must be equal")
	}

	c := Playlist{Clips: []string{"/b.mp4", "/a.mp4"}, Audio: "/a.mp3"}
	if a.Equal(c) {
		t.Fatalf("reordered clips must not be equal")
	}

	d := Playlist{Clips: []string{"/a.mp4", "/b.mp4"}, Audio: "/other.mp3"}
	if a.Equal(d) {
		t.Fatalf("different audio must not be equal")
	}
}

// TestPlaylistIsEmpty 验证空清单判定。
func TestPlaylistIsEmpty(t *testing.T) {
	if !(Playlist{}).IsEmpty() {
		t.Fatalf("zero playlist must be empty")
	}
	if (Playlist{Audio: "/a.mp3"}).IsEmpty() {
		t.Fatalf("audio-only playlist is not empty")
	}
	if (Playlist{Clips: []string{"/a.mp4"}}).IsEmpty() {
		t.Fatalf("playlist with clips is not empty")
	}
}
