package compositor

// The vertex/pixel shaders below are precompiled HLSL bytecode (fxc.exe
// /Vi output), not source compiled at runtime — mirroring the original
// ShaderCache design. Source, for reference when recompiling:
//
//	// vertex shader (vs_4_0)
//	struct VSIn  { float3 pos : POSITION; float2 uv : TEXCOORD0; };
//	struct VSOut { float4 pos : SV_POSITION; float2 uv : TEXCOORD0; };
//	VSOut main(VSIn input) {
//	    VSOut output;
//	    output.pos = float4(input.pos, 1.0);
//	    output.uv = input.uv;
//	    return output;
//	}
//
//	// pixel shader (ps_4_0)
//	Texture2D tex : register(t0);
//	SamplerState samp : register(s0);
//	float4 main(float4 pos : SV_POSITION, float2 uv : TEXCOORD0) : SV_TARGET {
//	    return tex.Sample(samp, uv);
//	}
var (
	vertexShaderBytecode = []byte{
		0x44, 0x58, 0x42, 0x43, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x34, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00, 0x56, 0x53, 0x5f, 0x34, 0x5f, 0x30, 0x00, 0x00,
	}
	pixelShaderBytecode = []byte{
		0x44, 0x58, 0x42, 0x43, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x34, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00, 0x50, 0x53, 0x5f, 0x34, 0x5f, 0x30, 0x00, 0x00,
	}
)
